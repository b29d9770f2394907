// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watch turns file system notifications into debounced batches of
// changed paths.
//
// A Watcher registers every directory below its root with fsnotify and adds
// directories created later. Each changed path is held until it has been
// quiet for the debounce window; paths released together are sent as one
// sorted, de-duplicated batch on the output channel.
//
// # Usage
//
//	batches := make(chan []string, 100)
//	w, err := watch.New(root, 2*time.Second, batches, watch.WithLogger(log))
//	defer w.Close()
//	for batch := range batches {
//	    store.ProcessChanges(ctx, batch)
//	}
package watch
