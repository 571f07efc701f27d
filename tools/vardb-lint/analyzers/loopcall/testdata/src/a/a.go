package a

import "context"

type Tx interface {
	Node(ctx context.Context, id string) error
}

type GraphDB interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

type Set map[string]bool

func (s Set) Update(key string) { s[key] = true }

func bad(ctx context.Context, ids []string, db GraphDB) {
	for _, id := range ids {
		db.Update(ctx, func(tx Tx) error { // want "Update called inside loop"
			return tx.Node(ctx, id)
		})
	}
	for i := 0; i < len(ids); i++ {
		db.View(ctx, read) // want "View called inside loop"
	}
}

func read(tx Tx) error { return nil }

func good(ctx context.Context, ids []string, db GraphDB, seen Set) {
	db.View(ctx, func(tx Tx) error {
		for _, id := range ids {
			if err := tx.Node(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	for _, id := range ids {
		seen.Update(id)
	}
}
