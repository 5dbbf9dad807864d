package realtime

import (
	"log/slog"
	"sync"

	v1 "ripple/shared/contracts/realtime/v1"
)

// Profile is the presence snapshot announced alongside an identity.
type Profile struct {
	DisplayName string
	AvatarURL   string
}

// Registry maps a stable user identity to its live connection and profile snapshot.
//
// Lifecycle: empty at process start, entries created by Announce, destroyed by
// Remove. Never persisted. It is the single shared mutable table of the realtime
// core; all access goes through its lock and other components never hold
// references into the internal map.
type Registry struct {
	log *slog.Logger

	mu      sync.RWMutex
	entries map[string]*presenceEntry
}

type presenceEntry struct {
	client  *Client
	profile Profile
	friends map[string]struct{}
}

// NewRegistry constructs an empty presence registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		log:     log,
		entries: make(map[string]*presenceEntry),
	}
}

// Announce registers (or overwrites) the entry for userID.
// Last writer wins: when the identity was already bound to another connection,
// the previous client is returned so the gateway can force-close it.
// A nil friendIDs slice disables roster filtering for this entry (used when no
// friend source is wired); an empty slice means "friends only, none yet".
func (r *Registry) Announce(userID string, c *Client, p Profile, friendIDs []string) (superseded *Client) {
	if r == nil || userID == "" || c == nil {
		return nil
	}

	friends := friendSet(friendIDs)

	r.mu.Lock()
	if prev, ok := r.entries[userID]; ok && prev.client != c {
		superseded = prev.client
	}
	r.entries[userID] = &presenceEntry{client: c, profile: p, friends: friends}
	r.mu.Unlock()

	c.BindUser(userID)

	r.log.Info("presence.announce", "user_id", userID, "session_id", c.SessionID, "superseded", superseded != nil)
	return superseded
}

// Resolve returns the live connection for userID. Absent means offline,
// which is a normal outcome, not an error.
func (r *Registry) Resolve(userID string) (*Client, bool) {
	if r == nil || userID == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[userID]
	if !ok {
		return nil, false
	}
	return e.client, true
}

// Remove deletes the entry owned by c, if any, and reports the identity it was
// bound to. It is a no-op for unregistered or superseded handles, which guards
// double-disconnect and the stale half of a supersession race.
func (r *Registry) Remove(c *Client) (userID string, ok bool) {
	if r == nil || c == nil {
		return "", false
	}

	r.mu.Lock()
	for id, e := range r.entries {
		if e.client == c {
			delete(r.entries, id)
			userID, ok = id, true
			break
		}
	}
	r.mu.Unlock()

	if ok {
		r.log.Info("presence.remove", "user_id", userID, "session_id", c.SessionID)
	}
	return userID, ok
}

// SetFriends replaces the cached friend set for an online identity.
// No-op when the identity is offline.
func (r *Registry) SetFriends(userID string, friendIDs []string) {
	if r == nil || userID == "" {
		return
	}
	friends := friendSet(friendIDs)

	r.mu.Lock()
	if e, ok := r.entries[userID]; ok {
		e.friends = friends
	}
	r.mu.Unlock()
}

// RosterFor returns the online identities visible to userID: its friends plus
// itself. The roster is filtered per recipient rather than broadcast globally,
// so non-friends never observe each other's presence.
func (r *Registry) RosterFor(userID string) []v1.RosterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	self, ok := r.entries[userID]
	if !ok {
		return nil
	}

	out := make([]v1.RosterEntry, 0, len(self.friends)+1)
	for id, e := range r.entries {
		if id != userID && self.friends != nil {
			if _, friend := self.friends[id]; !friend {
				continue
			}
		}
		out = append(out, v1.RosterEntry{
			UserID:      id,
			DisplayName: e.profile.DisplayName,
			AvatarURL:   e.profile.AvatarURL,
		})
	}
	return out
}

// BroadcastPresence fans the per-recipient roster out to every online session.
// Non-blocking: a full send queue drops the roster update for that session.
func (r *Registry) BroadcastPresence(build func(roster []v1.RosterEntry) v1.Envelope) {
	if r == nil || build == nil {
		return
	}

	r.mu.RLock()
	targets := make([]string, 0, len(r.entries))
	for id := range r.entries {
		targets = append(targets, id)
	}
	r.mu.RUnlock()

	for _, id := range targets {
		roster := r.RosterFor(id)
		if roster == nil {
			continue
		}

		r.mu.RLock()
		e, ok := r.entries[id]
		r.mu.RUnlock()
		if !ok {
			continue
		}

		env := build(roster)

		select {
		case <-e.client.Done():
			continue
		default:
		}

		select {
		case e.client.Send <- env:
		default:
			// Drop rather than block the whole broadcast.
		}
	}
}

// Len reports the number of online identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func friendSet(ids []string) map[string]struct{} {
	if ids == nil {
		return nil
	}
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
