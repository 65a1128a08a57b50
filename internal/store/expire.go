package store

import "time"

// must hold lock
func (r *Record) stopExpireTimer() {
	if r.expire_timer != nil {
		r.expire_timer.Stop()
		r.expire_timer = nil
	}
	r.expire_gen++
}

// ExpireIn schedules expiry d from now. A non-positive d expires immediately.
func (r *Record) ExpireIn(d time.Duration) {
	r.ExpireAt(time.Now().Add(d))
}

// ExpireAt schedules expiry at t, replacing any earlier schedule.
func (r *Record) ExpireAt(t time.Time) {
	r.locker.Lock()
	r.stopExpireTimer()
	r.expires_at = t
	r.expired = false
	gen := r.expire_gen
	d := time.Until(t)
	if d > 0 && !r.ignore_ttl {
		r.expire_timer = time.AfterFunc(d, func() { r.expire(gen) })
	}
	r.locker.Unlock()

	if d <= 0 {
		r.expire(gen)
	}
}

// Expire marks the record expired now and raises expired, unless
// expiration is disabled or the record already expired.
func (r *Record) Expire() {
	if r.Expired() {
		return
	}
	r.ExpireAt(time.Now())
}

func (r *Record) expire(gen int) {
	r.locker.Lock()
	if gen != r.expire_gen || r.ignore_ttl || r.expired || r.is_destroyed {
		r.locker.Unlock()
		return
	}
	r.expired = true
	r.expire_timer = nil
	r.locker.Unlock()

	r.emit(EventExpired, Event{})
}

// DisableExpiration cancels a pending expiry. The expiry time is kept so
// EnableExpiration can resume it.
func (r *Record) DisableExpiration() {
	r.locker.Lock()
	defer r.locker.Unlock()
	r.ignore_ttl = true
	r.stopExpireTimer()
}

func (r *Record) EnableExpiration() {
	r.locker.Lock()
	r.ignore_ttl = false
	at, expired := r.expires_at, r.expired
	r.locker.Unlock()

	if !at.IsZero() && !expired {
		r.ExpireAt(at)
	}
}

func (r *Record) Expired() bool {
	r.locker.RLock()
	defer r.locker.RUnlock()
	return r.expired
}

// ExpiresAt returns the scheduled expiry, if any.
func (r *Record) ExpiresAt() (time.Time, bool) {
	r.locker.RLock()
	defer r.locker.RUnlock()
	return r.expires_at, !r.expires_at.IsZero()
}
