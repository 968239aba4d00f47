package store_test

import (
	"testing"

	"github.com/warp/finance-engine/generic"
	"github.com/warp/finance-engine/generic/store"
	"github.com/warp/finance-engine/generic/store/storetest"
)

func TestMemory_DocumentStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) generic.DocumentStore {
		return store.NewMemory()
	})
}
