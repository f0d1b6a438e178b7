/*
 * MIT License
 *
 * Copyright (c) 2026 rpmsgsock contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package rpmsg

import (
	"context"
	"time"
)

// levelSema is a post-saturating, edge-to-level counting semaphore with a
// maximum count of 1. Posting it while it already holds a token is a no-op:
// multiple producers cannot stack posts, so a single waiter wakes once per
// event and must re-examine state itself rather than trust the wakeup count.
//
// golang.org/x/sync/semaphore models weighted acquire/release with an
// arbitrary ceiling, not this narrow "coalesce concurrent posts, wake once"
// pattern, so it is not reused here; see DESIGN.md.
type levelSema struct {
	ch chan struct{}
}

func newLevelSema() *levelSema {
	return &levelSema{ch: make(chan struct{}, 1)}
}

// post sets the semaphore to the signaled level if it is not already there.
func (s *levelSema) post() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// reset clears any pending signal without blocking.
func (s *levelSema) reset() {
	select {
	case <-s.ch:
	default:
	}
}

// wait blocks until posted, the context is done, or timeout elapses (a
// timeout <= 0 means wait indefinitely, bounded only by ctx).
func (s *levelSema) wait(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		select {
		case <-s.ch:
			return nil
		case <-ctx.Done():
			return mapCtxErr(ctx.Err())
		}
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-s.ch:
		return nil
	case <-t.C:
		return ErrTimedOut
	case <-ctx.Done():
		return mapCtxErr(ctx.Err())
	}
}

// mapCtxErr normalizes a context cancellation into this package's error
// taxonomy: a deadline is just another timeout from the caller's point of
// view, but an explicit Cancel is passed through unchanged.
func mapCtxErr(err error) error {
	if err == context.DeadlineExceeded {
		return ErrTimedOut
	}
	return err
}
