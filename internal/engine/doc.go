// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine ties the index, the live scanner and the change watcher
// together behind one search entry point.
//
// An Engine owns the index store for the home tree. At startup it rebuilds
// the index in the background when the index is new or was recreated, and
// it keeps the index fresh by applying watcher batches as they arrive.
// Searches are dispatched by scope: ScopeHome queries the index, ScopeRoot
// runs a capped regex scan from the live root.
//
// Searches run on a pool of engine.workers goroutines. Rebuilds and
// watcher batches take turns on a separate single worker, so an index
// write never occupies a search slot.
//
// # Key Types
//
//   - Engine: the search engine
//   - ProgressReceiver: rebuild progress in [0,1] with change notification
//   - Stats: index statistics plus engine state
//   - BatchInfo: the last watcher batch applied
//
// # Usage
//
//	eng, err := engine.New(ctx, cfg)
//	defer eng.Close()
//
//	if err := eng.WaitIndexed(ctx); err != nil {
//	    return err
//	}
//	results, err := eng.Search(ctx, "invoice", search.ScopeHome)
package engine
