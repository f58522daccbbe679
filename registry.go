package shmstate

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

// subscriptions counts live subscriptions per state name across the whole
// process. Diagnostics only: the subscription lifecycle never consults it,
// so a stale count can never block or corrupt a handle.
var subscriptions = cmap.New[int]()

func registryAdd(name string) {
	subscriptions.Upsert(name, 1, func(exist bool, cur, add int) int {
		if exist {
			return cur + add
		}
		return add
	})
}

func registryRemove(name string) {
	left := subscriptions.Upsert(name, 0, func(exist bool, cur, _ int) int {
		if !exist {
			return 0
		}
		return cur - 1
	})
	if left <= 0 {
		subscriptions.RemoveCb(name, func(_ string, cur int, exists bool) bool {
			return !exists || cur <= 0
		})
	}
}

// Subscriptions returns a snapshot of this process's live subscription
// counts keyed by state name.
func Subscriptions() map[string]int {
	return subscriptions.Items()
}
