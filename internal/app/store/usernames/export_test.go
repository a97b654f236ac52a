package usernames

// ForceOrderedWrites makes s skip transactions, as on a standalone server.
func ForceOrderedWrites(s *Store) { s.noTxn.Store(true) }

// UsesTransactions reports whether s still attempts transactions.
func UsesTransactions(s *Store) bool { return !s.noTxn.Load() }
