package cachemanager

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// fakeKV is an in-memory stand-in for cache.KV used only by this
// package's tests — the pack's teacher repo hand-writes stub doubles
// rather than generating mocks, and the same convention applies here.
type fakeKV struct {
	mu    sync.Mutex
	lists map[string][]string
	vals  map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{lists: map[string][]string{}, vals: map[string]string{}}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vals[key]
	return v, ok
}
func (f *fakeKV) Set(ctx context.Context, key, value string) { f.SetEx(ctx, key, value, 0) }
func (f *fakeKV) SetEx(ctx context.Context, key, value string, ttl time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vals[key] = value
}
func (f *fakeKV) Delete(ctx context.Context, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vals, key)
	delete(f.lists, key)
}
func (f *fakeKV) Exists(ctx context.Context, key string) bool {
	_, ok := f.Get(ctx, key)
	return ok
}
func (f *fakeKV) Expire(ctx context.Context, key string, ttl time.Duration) {}
func (f *fakeKV) TTL(ctx context.Context, key string) time.Duration        { return 0 }

func (f *fakeKV) GetJSON(ctx context.Context, key string, dest any) bool {
	v, ok := f.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(v), dest) == nil
}
func (f *fakeKV) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	b, _ := json.Marshal(value)
	f.SetEx(ctx, key, string(b), ttl)
}

func (f *fakeKV) LPush(ctx context.Context, key string, values ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[key] = append(values, f.lists[key]...)
}
func (f *fakeKV) RPush(ctx context.Context, key string, values ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[key] = append(f.lists[key], values...)
}
func (f *fakeKV) LPop(ctx context.Context, key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.lists[key]
	if len(list) == 0 {
		return "", false
	}
	f.lists[key] = list[1:]
	return list[0], true
}
func (f *fakeKV) LRange(ctx context.Context, key string, start, stop int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.lists[key]
	if len(list) == 0 {
		return nil
	}
	end := stop + 1
	if end < 0 || end > int64(len(list)) {
		end = int64(len(list))
	}
	if start >= int64(len(list)) {
		return nil
	}
	return append([]string{}, list[start:end]...)
}

func (f *fakeKV) SAdd(ctx context.Context, key string, members ...string) {
	f.RPush(ctx, key, members...)
}
func (f *fakeKV) SMembers(ctx context.Context, key string) []string {
	return f.LRange(ctx, key, 0, 1<<30)
}

func (f *fakeKV) HSet(ctx context.Context, key, field, value string) {
	f.SetEx(ctx, key+":"+field, value, 0)
}
func (f *fakeKV) HGet(ctx context.Context, key, field string) (string, bool) {
	return f.Get(ctx, key+":"+field)
}
func (f *fakeKV) HGetAll(ctx context.Context, key string) map[string]string {
	return nil
}
