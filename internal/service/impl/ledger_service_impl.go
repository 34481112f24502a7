package impl

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"geoproof/internal/domain"
	"geoproof/internal/events"
	"geoproof/internal/observability/metrics"
	"geoproof/internal/service"
	"geoproof/internal/store"
)

var _ service.LedgerService = (*LedgerServiceImpl)(nil)

type LedgerServiceImpl struct {
	store *store.Store
	sink  events.Sink
	now   func() time.Time

	// afterVerify runs between the optimistic ownership check and the
	// transfer transaction. Tests use it to line up competing transfers.
	afterVerify func()
}

func NewLedgerServiceImpl(st *store.Store, sink events.Sink) *LedgerServiceImpl {
	if sink == nil {
		sink = events.Discard
	}
	return &LedgerServiceImpl{
		store: st,
		sink:  sink,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (l *LedgerServiceImpl) Mint(ctx context.Context, validation *domain.ValidationRecord, deviceID, receiver string) (*domain.TransitionRecord, error) {
	if l.store == nil {
		return nil, ErrStoreMissing
	}
	receiver = strings.TrimSpace(receiver)
	if validation == nil || validation.ID == 0 || !validation.Succeeded() || receiver == "" {
		metrics.MintsTotal.WithLabelValues("rejected").Inc()
		return nil, domain.ErrInvalidRequest
	}

	vid := validation.ID
	rec := &domain.TransitionRecord{
		TokenAddress: domain.NewAddress(),
		ValidationID: &vid,
		Receiver:     receiver,
		Status:       domain.StatusMint,
		Timestamp:    domain.NextTimestamp(l.nowTime(), nil),
	}
	if deviceID != "" {
		rec.DeviceID = &deviceID
	}
	if err := l.store.Transitions().Create(ctx, rec); err != nil {
		metrics.MintsTotal.WithLabelValues("error").Inc()
		return nil, domain.Storage("mint", err)
	}
	metrics.MintsTotal.WithLabelValues("success").Inc()

	l.sink.Emit(ctx, events.TokenMinted{
		TokenAddress: rec.TokenAddress,
		ValidationID: vid,
		DeviceID:     deviceID,
		Receiver:     receiver,
		At:           rec.Timestamp,
	})
	return rec, nil
}

func (l *LedgerServiceImpl) CurrentOwner(ctx context.Context, token string) (string, error) {
	latest, err := l.latest(ctx, l.store, token)
	if err != nil {
		return "", err
	}
	return latest.Receiver, nil
}

func (l *LedgerServiceImpl) History(ctx context.Context, token string) ([]domain.TransitionRecord, error) {
	if l.store == nil {
		return nil, ErrStoreMissing
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidRequest
	}
	recs, err := l.store.Transitions().ListByTokens(ctx, []string{token})
	if err != nil {
		return nil, domain.Storage("token history", err)
	}
	if len(recs) == 0 {
		return nil, &domain.TokenError{Token: token, Err: domain.ErrTokenNotFound}
	}
	slices.SortFunc(recs, func(a, b domain.TransitionRecord) int {
		if b.After(&a) {
			return -1
		}
		if a.After(&b) {
			return 1
		}
		return 0
	})
	return recs, nil
}

func (l *LedgerServiceImpl) OwnedBy(ctx context.Context, owner string) ([]domain.TransitionRecord, error) {
	if l.store == nil {
		return nil, ErrStoreMissing
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, domain.ErrInvalidRequest
	}
	tokens, err := l.store.Transitions().TokensReceivedBy(ctx, owner)
	if err != nil {
		return nil, domain.Storage("tokens received", err)
	}
	recs, err := l.store.Transitions().ListByTokens(ctx, tokens)
	if err != nil {
		return nil, domain.Storage("list transitions", err)
	}

	out := make([]domain.TransitionRecord, 0, len(tokens))
	for _, rec := range domain.LatestByToken(recs) {
		if rec.Receiver == owner && rec.Status.Holding() {
			out = append(out, *rec)
		}
	}
	slices.SortFunc(out, func(a, b domain.TransitionRecord) int {
		if a.After(&b) {
			return -1
		}
		if b.After(&a) {
			return 1
		}
		return 0
	})
	return out, nil
}

func (l *LedgerServiceImpl) Transfer(ctx context.Context, sender string, tokens []string, receiver string) (int, error) {
	if l.store == nil {
		return 0, ErrStoreMissing
	}
	sender = strings.TrimSpace(sender)
	receiver = strings.TrimSpace(receiver)
	batch, err := normalizeTokens(tokens)
	if err != nil || sender == "" || receiver == "" || sender == receiver {
		return 0, l.rejected(ctx, sender, receiver, domain.ErrInvalidRequest)
	}

	if _, err := l.store.Accounts().GetByCollectionAddress(ctx, receiver); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return 0, l.rejected(ctx, sender, receiver, domain.ErrAccountNotFound)
		}
		return 0, l.rejected(ctx, sender, receiver, domain.Storage("get receiver", err))
	}

	verified, err := l.verifyHeld(ctx, l.store, sender, batch)
	if err != nil {
		return 0, l.rejected(ctx, sender, receiver, err)
	}

	if l.afterVerify != nil {
		l.afterVerify()
	}

	now := l.nowTime()
	err = l.store.WithSerializableTx(ctx, func(tx *store.Store) error {
		recs, err := tx.Transitions().ListByTokens(ctx, batch)
		if err != nil {
			return err
		}
		current := domain.LatestByToken(recs)
		for _, token := range batch {
			prev := verified[token]
			if cur := current[token]; cur == nil || cur.ID != prev.ID {
				return &domain.TokenError{Token: token, Err: domain.ErrTransferConflict}
			}
			ok, err := tx.Transitions().MarkSpent(ctx, prev.ID)
			if err != nil {
				return err
			}
			if !ok {
				return &domain.TokenError{Token: token, Err: domain.ErrTransferConflict}
			}
			from := sender
			next := &domain.TransitionRecord{
				TokenAddress: token,
				DeviceID:     prev.DeviceID,
				Sender:       &from,
				Receiver:     receiver,
				Status:       domain.StatusTransferred,
				Timestamp:    domain.NextTimestamp(now, prev),
			}
			if err := tx.Transitions().Create(ctx, next); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if store.IsConflict(err) {
			err = domain.ErrTransferConflict
		}
		return 0, l.rejected(ctx, sender, receiver, wrapStorage("transfer", err))
	}

	metrics.TransfersTotal.WithLabelValues("success").Inc()
	metrics.TokensTransferredTotal.Add(float64(len(batch)))
	l.sink.Emit(ctx, events.TokensTransferred{
		Sender:   sender,
		Receiver: receiver,
		Tokens:   batch,
		At:       now,
	})
	return len(batch), nil
}

// verifyHeld returns the latest record of every token, or the first token
// that sender does not currently hold.
func (l *LedgerServiceImpl) verifyHeld(ctx context.Context, st *store.Store, sender string, batch []string) (map[string]*domain.TransitionRecord, error) {
	recs, err := st.Transitions().ListByTokens(ctx, batch)
	if err != nil {
		return nil, domain.Storage("list transitions", err)
	}
	latest := domain.LatestByToken(recs)
	for _, token := range batch {
		rec, ok := latest[token]
		if !ok {
			return nil, &domain.TokenError{Token: token, Err: domain.ErrTokenNotFound}
		}
		if rec.Receiver != sender || !rec.Status.Holding() {
			return nil, &domain.TokenError{Token: token, Err: domain.ErrNotTokenOwner}
		}
	}
	return latest, nil
}

func (l *LedgerServiceImpl) latest(ctx context.Context, st *store.Store, token string) (*domain.TransitionRecord, error) {
	if st == nil {
		return nil, ErrStoreMissing
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidRequest
	}
	recs, err := st.Transitions().ListByTokens(ctx, []string{token})
	if err != nil {
		return nil, domain.Storage("list transitions", err)
	}
	rec, ok := domain.LatestByToken(recs)[token]
	if !ok {
		return nil, &domain.TokenError{Token: token, Err: domain.ErrTokenNotFound}
	}
	return rec, nil
}

func (l *LedgerServiceImpl) rejected(ctx context.Context, sender, receiver string, err error) error {
	result := "rejected"
	switch {
	case errors.Is(err, domain.ErrTransferConflict):
		result = "conflict"
	case errors.Is(err, domain.ErrStorage):
		result = "error"
	}
	metrics.TransfersTotal.WithLabelValues(result).Inc()

	ev := events.TransferRejected{
		Sender:   sender,
		Receiver: receiver,
		Reason:   err.Error(),
		At:       l.nowTime(),
	}
	var te *domain.TokenError
	if errors.As(err, &te) {
		ev.Token = te.Token
		ev.Reason = te.Err.Error()
	}
	if errors.Is(err, domain.ErrStorage) {
		ev.Reason = domain.ErrStorage.Error()
	}
	l.sink.Emit(ctx, ev)
	return err
}

func (l *LedgerServiceImpl) nowTime() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now().UTC()
}

// normalizeTokens trims and de-duplicates the batch, keeping first-seen order.
func normalizeTokens(tokens []string) ([]string, error) {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, domain.ErrInvalidRequest
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, domain.ErrInvalidRequest
	}
	return out, nil
}
