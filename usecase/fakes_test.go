package usecase

import (
	"context"

	"gcd-backend/model"
	"gcd-backend/pkg/gemini"
	"gcd-backend/pkg/mailer"
)

type fakeNegotiationStore struct {
	byID          map[int64]*model.Negotiation
	latest        *model.Negotiation
	active        []model.Negotiation
	statusUpdates map[int64]string
	offerUpdates  map[int64]float64
	pendingSet    bool
	pendingAction string
	pendingPrice  *float64
	cleared       bool
	rateConPaths  map[int64]string
}

func newFakeNegotiationStore() *fakeNegotiationStore {
	return &fakeNegotiationStore{
		byID:          map[int64]*model.Negotiation{},
		statusUpdates: map[int64]string{},
		offerUpdates:  map[int64]float64{},
		rateConPaths:  map[int64]string{},
	}
}

func (f *fakeNegotiationStore) GetByID(id int64) (*model.Negotiation, error) {
	return f.byID[id], nil
}

func (f *fakeNegotiationStore) LatestByDriverAndLoad(driverID, loadID int64) (*model.Negotiation, error) {
	return f.latest, nil
}

func (f *fakeNegotiationStore) ActiveByLoad(loadID int64) ([]model.Negotiation, error) {
	return f.active, nil
}

func (f *fakeNegotiationStore) UpdateStatus(id int64, status string) error {
	f.statusUpdates[id] = status
	return nil
}

func (f *fakeNegotiationStore) UpdateCurrentOffer(id int64, offer float64) error {
	f.offerUpdates[id] = offer
	return nil
}

func (f *fakeNegotiationStore) SetPendingReview(id int64, subject, body, action string, price *float64) error {
	f.pendingSet = true
	f.pendingAction = action
	f.pendingPrice = price
	return nil
}

func (f *fakeNegotiationStore) ClearPendingReview(id int64) error {
	f.cleared = true
	return nil
}

func (f *fakeNegotiationStore) SetRateCon(id int64, path string) error {
	f.rateConPaths[id] = path
	return nil
}

type fakeMessageStore struct {
	inserted []model.Message
	existing map[string]bool
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{existing: map[string]bool{}}
}

func (f *fakeMessageStore) Insert(msg *model.Message) error {
	f.inserted = append(f.inserted, *msg)
	return nil
}

func (f *fakeMessageStore) ExistsExact(negotiationID int64, sender, body string) (bool, error) {
	return f.existing[body], nil
}

func (f *fakeMessageStore) ListByNegotiation(negotiationID int64) ([]model.Message, error) {
	return f.inserted, nil
}

func (f *fakeMessageStore) bodies() []string {
	out := make([]string, 0, len(f.inserted))
	for _, m := range f.inserted {
		out = append(out, m.Body)
	}
	return out
}

type fakeDriverStore struct {
	byID     map[int64]*model.Driver
	byHandle map[string]*model.Driver
}

func newFakeDriverStore() *fakeDriverStore {
	return &fakeDriverStore{byID: map[int64]*model.Driver{}, byHandle: map[string]*model.Driver{}}
}

func (f *fakeDriverStore) GetByID(id int64) (*model.Driver, error) {
	return f.byID[id], nil
}

func (f *fakeDriverStore) FindByHandle(handle string) (*model.Driver, error) {
	return f.byHandle[handle], nil
}

type fakeLoadStore struct {
	byID  map[int64]*model.Load
	byRef map[string]*model.Load
}

func newFakeLoadStore() *fakeLoadStore {
	return &fakeLoadStore{byID: map[int64]*model.Load{}, byRef: map[string]*model.Load{}}
}

func (f *fakeLoadStore) GetByID(id int64) (*model.Load, error) {
	return f.byID[id], nil
}

func (f *fakeLoadStore) FindByRef(ref string) (*model.Load, error) {
	return f.byRef[ref], nil
}

type fakeBrokerEmailStore struct {
	best *model.BrokerEmail
}

func (f *fakeBrokerEmailStore) BestByMCNumber(mcNumber string) (*model.BrokerEmail, error) {
	return f.best, nil
}

type fakeSender struct {
	sent    []mailer.Outbound
	failErr error
}

func (f *fakeSender) Send(ctx context.Context, out mailer.Outbound) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.sent = append(f.sent, out)
	return nil
}

type fakeSuggester struct {
	suggestion *gemini.Suggestion
}

func (f *fakeSuggester) SuggestDecision(ctx context.Context, req gemini.SuggestRequest) *gemini.Suggestion {
	return f.suggestion
}
