// Package session provides server-side sessions identified by a cookie.
//
// A Manager middleware reads the session cookie, issues a random UUID when the
// cookie is absent or malformed, and places a *Session in the request context.
// Handlers retrieve it with FromContext and read or write attributes through it.
//
// # Stores
//
// RedisStore keeps each session as a Redis hash with a sliding expiry, so any
// number of service instances share the same sessions. MemoryStore is a
// single-process alternative; it hides expired sessions immediately and
// releases their memory when Sweep runs.
//
//	store := session.NewRedisStore(redisClient, 30*time.Minute)
//	manager := session.NewManager(store, session.DefaultConfig())
//	router.Use(manager.Middleware)
package session
