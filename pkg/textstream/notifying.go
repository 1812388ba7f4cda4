package textstream

import "context"

// Notifying wraps a Store so every successful Append and Finalize is announced
// on the notifier.
func Notifying(store Store, notifier Notifier) Store {
	if notifier == nil {
		return store
	}
	return &notifyingStore{Store: store, notifier: notifier}
}

type notifyingStore struct {
	Store
	notifier Notifier
}

func (s *notifyingStore) Append(ctx context.Context, id, fragment string) (int64, error) {
	gen, err := s.Store.Append(ctx, id, fragment)
	if err != nil {
		return gen, err
	}
	s.notifier.Notify(ctx, Change{ID: id, Generation: gen, Status: StatusStreaming})
	return gen, nil
}

func (s *notifyingStore) Finalize(ctx context.Context, id string, outcome Status) error {
	if err := s.Store.Finalize(ctx, id, outcome); err != nil {
		return err
	}
	s.notifier.Notify(ctx, Change{ID: id, Status: outcome})
	return nil
}
