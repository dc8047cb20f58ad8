// Package state provides the synchronized todo store shared by the UI.
//
// # Overview
//
// Store is the single source of truth for the presentation layer. It owns the
// in-memory todo collection, a loading flag and one error slot, and it is the
// only code path that mutates them. Every mutation goes through a
// todoapi.Service call and the local collection is reconciled only after that
// call succeeds.
//
// # Operation Shape
//
// Refresh, Add, Modify, Remove and Toggle all follow the same sequence:
//
//	acquire slot ──> Loading=true, Error="" ──> notify
//	      │
//	      └──> Service call
//	             ├─ ok:   reconcile collection, Loading=false ──> notify
//	             └─ fail: Error=<message>,      Loading=false ──> notify
//
// Reconciliation is the minimal local change:
//
//   - Refresh: replace the collection wholesale
//   - Add:     append the created record (replace if its id is already held)
//   - Modify:  replace the record with that id (append if it is missing)
//   - Remove:  drop the record with that id
//   - Toggle:  Modify with the held record's completion flipped; an id that
//     is not held fails without a Service call
//
// A failed operation never touches the collection. The cause is logged and
// reduced to one fixed message per operation type (MsgFetchFailed,
// MsgAddFailed, MsgUpdateFailed, MsgDeleteFailed). Operations do not return
// errors; callers observe the outcome through Snapshot or Subscribe.
//
// # Concurrency Model
//
// Operations are serialized through a one-slot queue. If two intents are
// dispatched together (two quick key presses), the second waits for the
// first to finish instead of racing it, so no reconciliation is lost and the
// loading flag reflects the call actually in flight. Waiting honours the
// caller's context. A waiter whose context ends first sets its failure
// message at once, and the operation holding the slot reports that message
// again when it settles rather than clearing it.
//
// The state itself is guarded by a sync.RWMutex held only while copying or
// applying a reconciliation, never across network I/O. Snapshot returns a
// deep copy, so readers can keep it as long as they like.
//
// # Subscriptions
//
// Subscribe registers a Listener that receives a fresh Snapshot after every
// change, in mutation order. Listeners run on the goroutine performing the
// operation; they may call Snapshot but must not start another blocking
// operation synchronously.
//
// # Usage Example
//
//	store := state.Open(ctx, client, state.WithLogger(logger))
//	unsubscribe := store.Subscribe(func(snap state.Snapshot) {
//		render(snap)
//	})
//	defer unsubscribe()
//
//	draft, _ := todoapi.NewDraft("Buy milk", "")
//	store.Add(ctx, draft)
//	if snap := store.Snapshot(); snap.HasError() {
//		// offer a retry that re-issues the same intent
//	}
package state
