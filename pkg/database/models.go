package database

import (
	authdomain "jobtrack-backend/internal/auth/domain"
	ingestdomain "jobtrack-backend/internal/ingest/domain"
	trackerdomain "jobtrack-backend/internal/tracker/domain"
)

// Models is every table the service owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&authdomain.LinkedAccount{},
		&authdomain.FCMToken{},
		&trackerdomain.Company{},
		&trackerdomain.Job{},
		&trackerdomain.Application{},
		&trackerdomain.Activity{},
		&ingestdomain.EmailEvent{},
	}
}
