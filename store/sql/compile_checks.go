package sqlstore

import "github.com/goliatone/go-cerm/core"

var (
	_ core.TokenStore             = (*TokenStore)(nil)
	_ core.ActivitySink           = (*ActivityStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
