package memory

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/entities"
	domainerrors "github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/domain/errors"
	"github.com/adrianocaiafa/onchain-polls/contexts/polling-core/poll-ledger/ports"

	"github.com/google/uuid"
)

const (
	defaultBuilderShareBps = 250
	defaultDailyLimit      = 10
)

type voteKey struct {
	pollID uint64
	voter  string
}

type quotaKey struct {
	account string
	day     int64
}

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Transfer is one payout journal entry recorded by the in-memory gateway.
type Transfer struct {
	Account string
	Amount  uint64
}

// state holds every ledger table. It is only ever touched while the owning
// Store's mutex is held; InTx works on a deep copy so a failed callback
// leaves the committed state untouched.
type state struct {
	nextPollID uint64
	polls      map[uint64]entities.Poll
	votes      map[voteKey]entities.VoteRecord
	accounts   map[string]entities.AccountLedger
	builder    entities.BuilderLedger
	config     entities.LedgerConfig
	quota      map[quotaKey]int
	allowlist  map[string]bool
	outbox     []outboxRecord
}

func newState(operator string) *state {
	return &state{
		polls:    make(map[uint64]entities.Poll),
		votes:    make(map[voteKey]entities.VoteRecord),
		accounts: make(map[string]entities.AccountLedger),
		config: entities.LedgerConfig{
			BuilderShareBps: defaultBuilderShareBps,
			DailyLimit:      defaultDailyLimit,
			Operator:        strings.TrimSpace(operator),
		},
		quota:     make(map[quotaKey]int),
		allowlist: make(map[string]bool),
	}
}

func (s *state) clone() *state {
	next := &state{
		nextPollID: s.nextPollID,
		polls:      make(map[uint64]entities.Poll, len(s.polls)),
		votes:      make(map[voteKey]entities.VoteRecord, len(s.votes)),
		accounts:   make(map[string]entities.AccountLedger, len(s.accounts)),
		builder:    s.builder,
		config:     s.config,
		quota:      make(map[quotaKey]int, len(s.quota)),
		allowlist:  make(map[string]bool, len(s.allowlist)),
		outbox:     append([]outboxRecord(nil), s.outbox...),
	}
	for id, poll := range s.polls {
		next.polls[id] = poll.Clone()
	}
	for key, record := range s.votes {
		next.votes[key] = record
	}
	for account, ledger := range s.accounts {
		next.accounts[account] = ledger.Clone()
	}
	for key, count := range s.quota {
		next.quota[key] = count
	}
	for account, allowed := range s.allowlist {
		next.allowlist[account] = allowed
	}
	return next
}

func (s *state) nextID() uint64 {
	s.nextPollID++
	return s.nextPollID
}

func (s *state) getPoll(pollID uint64) (entities.Poll, error) {
	poll, ok := s.polls[pollID]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	return poll.Clone(), nil
}

func (s *state) savePoll(poll entities.Poll) {
	s.polls[poll.PollID] = poll.Clone()
}

func (s *state) listPolls() []entities.Poll {
	polls := make([]entities.Poll, 0, len(s.polls))
	for _, poll := range s.polls {
		polls = append(polls, poll.Clone())
	}
	return polls
}

func (s *state) getAccount(account string) entities.AccountLedger {
	account = strings.TrimSpace(account)
	ledger, ok := s.accounts[account]
	if !ok {
		return entities.AccountLedger{Account: account}
	}
	return ledger.Clone()
}

func (s *state) appendOutbox(envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	s.outbox = append(s.outbox, outboxRecord{message: ports.OutboxMessage{
		OutboxID:     uuid.NewString(),
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt,
	}})
	return nil
}

// Store is the in-memory ledger backend. Beyond ports.Store it also serves
// as the test clock, the id generator, the payout gateway, and the outbox
// source so a whole module can be wired from a single instance.
type Store struct {
	mu    sync.RWMutex
	state *state

	now         time.Time
	transfers   []Transfer
	transferErr error
}

func NewStore(operator string) *Store {
	return &Store{state: newState(operator)}
}

// InTx snapshots the committed state, runs fn against the copy, and swaps
// the copy in only when fn succeeds. Any error discards every write the
// callback made.
func (s *Store) InTx(_ context.Context, fn func(ports.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft := s.state.clone()
	if err := fn(&txView{state: draft}); err != nil {
		return err
	}
	s.state = draft
	return nil
}

func (s *Store) NextPollID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.nextID(), nil
}

func (s *Store) GetPoll(_ context.Context, pollID uint64) (entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getPoll(pollID)
}

func (s *Store) SavePoll(_ context.Context, poll entities.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.savePoll(poll)
	return nil
}

func (s *Store) ListPolls(_ context.Context) ([]entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listPolls(), nil
}

func (s *Store) HasVoted(_ context.Context, pollID uint64, voter string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.state.votes[voteKey{pollID: pollID, voter: strings.TrimSpace(voter)}]
	return ok, nil
}

func (s *Store) SaveVoteRecord(_ context.Context, record entities.VoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.votes[voteKey{pollID: record.PollID, voter: strings.TrimSpace(record.Voter)}] = record
	return nil
}

func (s *Store) GetAccount(_ context.Context, account string) (entities.AccountLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getAccount(account), nil
}

func (s *Store) SaveAccount(_ context.Context, ledger entities.AccountLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.accounts[strings.TrimSpace(ledger.Account)] = ledger.Clone()
	return nil
}

func (s *Store) GetBuilder(_ context.Context) (entities.BuilderLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.builder, nil
}

func (s *Store) SaveBuilder(_ context.Context, ledger entities.BuilderLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.builder = ledger
	return nil
}

func (s *Store) GetConfig(_ context.Context) (entities.LedgerConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.config, nil
}

func (s *Store) SaveConfig(_ context.Context, cfg entities.LedgerConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.config = cfg
	return nil
}

func (s *Store) QuotaCount(_ context.Context, account string, dayIndex int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.quota[quotaKey{account: strings.TrimSpace(account), day: dayIndex}], nil
}

func (s *Store) IncrementQuota(_ context.Context, account string, dayIndex int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.quota[quotaKey{account: strings.TrimSpace(account), day: dayIndex}]++
	return nil
}

func (s *Store) IsAllowListed(_ context.Context, account string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.allowlist[strings.TrimSpace(account)], nil
}

func (s *Store) SetAllowListed(_ context.Context, account string, allowed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.allowlist[strings.TrimSpace(account)] = allowed
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.appendOutbox(envelope)
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pending := make([]ports.OutboxMessage, 0, limit)
	for _, record := range s.state.outbox {
		if record.published {
			continue
		}
		pending = append(pending, record.message)
		if len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.outbox {
		if s.state.outbox[i].message.OutboxID == outboxID {
			s.state.outbox[i].published = true
			return nil
		}
	}
	return nil
}

// OutboxEvents decodes every appended outbox envelope in order, published or
// not. Test helper.
func (s *Store) OutboxEvents() []ports.EventEnvelope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]ports.EventEnvelope, 0, len(s.state.outbox))
	for _, record := range s.state.outbox {
		var event ports.EventEnvelope
		if err := json.Unmarshal(record.message.Payload, &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events
}

// Now implements ports.Clock. It returns wall time until SetNow pins it.
func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.now.IsZero() {
		return time.Now().UTC()
	}
	return s.now
}

func (s *Store) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now.UTC()
}

func (s *Store) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now.IsZero() {
		s.now = time.Now().UTC()
	}
	s.now = s.now.Add(d)
}

// NewID implements ports.IDGenerator.
func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// Transfer implements ports.PayoutGateway by journaling the payout.
func (s *Store) Transfer(_ context.Context, account string, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transferErr != nil {
		return s.transferErr
	}
	s.transfers = append(s.transfers, Transfer{Account: strings.TrimSpace(account), Amount: amount})
	return nil
}

func (s *Store) SetTransferError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transferErr = err
}

func (s *Store) Transfers() []Transfer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Transfer(nil), s.transfers...)
}

// txView exposes one draft state as a ports.Repository. The owning Store's
// mutex is held for the whole InTx call, so no locking happens here.
type txView struct {
	state *state
}

func (v *txView) NextPollID(_ context.Context) (uint64, error) {
	return v.state.nextID(), nil
}

func (v *txView) GetPoll(_ context.Context, pollID uint64) (entities.Poll, error) {
	return v.state.getPoll(pollID)
}

func (v *txView) SavePoll(_ context.Context, poll entities.Poll) error {
	v.state.savePoll(poll)
	return nil
}

func (v *txView) ListPolls(_ context.Context) ([]entities.Poll, error) {
	return v.state.listPolls(), nil
}

func (v *txView) HasVoted(_ context.Context, pollID uint64, voter string) (bool, error) {
	_, ok := v.state.votes[voteKey{pollID: pollID, voter: strings.TrimSpace(voter)}]
	return ok, nil
}

func (v *txView) SaveVoteRecord(_ context.Context, record entities.VoteRecord) error {
	v.state.votes[voteKey{pollID: record.PollID, voter: strings.TrimSpace(record.Voter)}] = record
	return nil
}

func (v *txView) GetAccount(_ context.Context, account string) (entities.AccountLedger, error) {
	return v.state.getAccount(account), nil
}

func (v *txView) SaveAccount(_ context.Context, ledger entities.AccountLedger) error {
	v.state.accounts[strings.TrimSpace(ledger.Account)] = ledger.Clone()
	return nil
}

func (v *txView) GetBuilder(_ context.Context) (entities.BuilderLedger, error) {
	return v.state.builder, nil
}

func (v *txView) SaveBuilder(_ context.Context, ledger entities.BuilderLedger) error {
	v.state.builder = ledger
	return nil
}

func (v *txView) GetConfig(_ context.Context) (entities.LedgerConfig, error) {
	return v.state.config, nil
}

func (v *txView) SaveConfig(_ context.Context, cfg entities.LedgerConfig) error {
	v.state.config = cfg
	return nil
}

func (v *txView) QuotaCount(_ context.Context, account string, dayIndex int64) (int, error) {
	return v.state.quota[quotaKey{account: strings.TrimSpace(account), day: dayIndex}], nil
}

func (v *txView) IncrementQuota(_ context.Context, account string, dayIndex int64) error {
	v.state.quota[quotaKey{account: strings.TrimSpace(account), day: dayIndex}]++
	return nil
}

func (v *txView) IsAllowListed(_ context.Context, account string) (bool, error) {
	return v.state.allowlist[strings.TrimSpace(account)], nil
}

func (v *txView) SetAllowListed(_ context.Context, account string, allowed bool) error {
	v.state.allowlist[strings.TrimSpace(account)] = allowed
	return nil
}

func (v *txView) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	return v.state.appendOutbox(envelope)
}
