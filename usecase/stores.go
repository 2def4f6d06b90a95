package usecase

import (
	"gcd-backend/dao"
	"gcd-backend/model"
)

// NegotiationStore is the slice of the negotiation repository the
// orchestrator depends on.
type NegotiationStore interface {
	GetByID(id int64) (*model.Negotiation, error)
	LatestByDriverAndLoad(driverID, loadID int64) (*model.Negotiation, error)
	ActiveByLoad(loadID int64) ([]model.Negotiation, error)
	UpdateStatus(id int64, status string) error
	UpdateCurrentOffer(id int64, offer float64) error
	SetPendingReview(id int64, subject, body, action string, price *float64) error
	ClearPendingReview(id int64) error
	SetRateCon(id int64, path string) error
}

type MessageStore interface {
	Insert(msg *model.Message) error
	ExistsExact(negotiationID int64, sender, body string) (bool, error)
	ListByNegotiation(negotiationID int64) ([]model.Message, error)
}

type DriverStore interface {
	GetByID(id int64) (*model.Driver, error)
	FindByHandle(handle string) (*model.Driver, error)
}

type LoadStore interface {
	GetByID(id int64) (*model.Load, error)
	FindByRef(ref string) (*model.Load, error)
}

type BrokerEmailStore interface {
	BestByMCNumber(mcNumber string) (*model.BrokerEmail, error)
}

// Stores bundles every repository the inbound pipeline touches, bound
// to one DBTX so a whole inbound message commits or rolls back as a
// unit.
type Stores struct {
	Negotiations NegotiationStore
	Messages     MessageStore
	Drivers      DriverStore
	Loads        LoadStore
	BrokerEmails BrokerEmailStore
}

// StoreFactory builds a Stores bundle over a *sql.DB or *sql.Tx.
type StoreFactory func(db dao.DBTX) Stores

// DefaultStores is the production factory over the dao repositories.
func DefaultStores(db dao.DBTX) Stores {
	return Stores{
		Negotiations: dao.NewNegotiationRepository(db),
		Messages:     dao.NewMessageRepository(db),
		Drivers:      dao.NewDriverRepository(db),
		Loads:        dao.NewLoadRepository(db),
		BrokerEmails: dao.NewBrokerEmailRepository(db),
	}
}
