package auth

import (
	"fmt"
	"os"
	"time"
)

// maxEnvAccounts bounds the numbered env var scan.
const maxEnvAccounts = 16

// EnvironmentStore reads accounts from AUTH{n}/CT0{n} environment
// variables with optional PROXY{n} egress routes. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-backed store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables.
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve matches accounts by their acc{n} name.
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	accounts, _ := e.List()
	for _, account := range accounts {
		if account.Name == name {
			return account, nil
		}
	}
	return nil, ErrCredentialsNotFound
}

// List returns every complete AUTH{n}/CT0{n} pair.
func (e *EnvironmentStore) List() ([]*Account, error) {
	var accounts []*Account
	for i := 1; i <= maxEnvAccounts; i++ {
		auth := os.Getenv(fmt.Sprintf("AUTH%d", i))
		ct0 := os.Getenv(fmt.Sprintf("CT0%d", i))
		if auth == "" || ct0 == "" {
			continue
		}
		accounts = append(accounts, &Account{
			Name:         fmt.Sprintf("acc%d", i),
			AuthToken:    auth,
			CSRFToken:    ct0,
			Proxy:        os.Getenv(fmt.Sprintf("PROXY%d", i)),
			LastModified: time.Now(),
		})
	}
	return accounts, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(name string) bool {
	_, err := e.Retrieve(name)
	return err == nil
}
