package shared

import "context"

type storeContextKey struct{}

// StoreIdentity describes the authenticated store on a request.
type StoreIdentity struct {
	ID   int64
	Name string
}

// ContextWithStore stores the authenticated store identity in context.
func ContextWithStore(ctx context.Context, store StoreIdentity) context.Context {
	return context.WithValue(ctx, storeContextKey{}, store)
}

// StoreFromContext extracts the authenticated store identity from context.
func StoreFromContext(ctx context.Context) (StoreIdentity, bool) {
	store, ok := ctx.Value(storeContextKey{}).(StoreIdentity)
	return store, ok
}
