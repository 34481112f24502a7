package impl

import (
	"context"
	"errors"
	"strings"

	"geoproof/internal/domain"
	"geoproof/internal/service"
	"geoproof/internal/store"

	"github.com/google/uuid"
)

var _ service.AccountService = (*AccountServiceImpl)(nil)

type AccountServiceImpl struct {
	store *store.Store
}

func NewAccountServiceImpl(st *store.Store) *AccountServiceImpl {
	return &AccountServiceImpl{store: st}
}

func (a *AccountServiceImpl) Ensure(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	if a.store == nil {
		return nil, ErrStoreMissing
	}
	if id == uuid.Nil {
		return nil, domain.ErrInvalidRequest
	}
	acct, err := a.store.Accounts().Ensure(ctx, id)
	if err != nil {
		return nil, domain.Storage("ensure account", err)
	}
	return acct, nil
}

func (a *AccountServiceImpl) ByCollectionAddress(ctx context.Context, addr string) (*domain.Account, error) {
	if a.store == nil {
		return nil, ErrStoreMissing
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, domain.ErrInvalidRequest
	}
	acct, err := a.store.Accounts().GetByCollectionAddress(ctx, addr)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, domain.Storage("get account", err)
	}
	return acct, nil
}

func (a *AccountServiceImpl) ByIDs(ctx context.Context, ids []domain.AccountID) ([]domain.Account, error) {
	if a.store == nil {
		return nil, ErrStoreMissing
	}
	accts, err := a.store.Accounts().ListByIDs(ctx, ids)
	if err != nil {
		return nil, domain.Storage("list accounts", err)
	}
	return accts, nil
}
