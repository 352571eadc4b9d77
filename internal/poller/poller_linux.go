//go:build linux

// File: internal/poller/poller_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux epoll(7) implementation of api.Poller with an eventfd wake
// primitive. Level-triggered: a descriptor stays ready until drained,
// so a loop that processes one event per iteration never starves.

package poller

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-reactor/api"
)

// epollPoller multiplexes readiness events for one loop goroutine.
type epollPoller struct {
	epfd   int
	wakeFD int

	mu  sync.Mutex // guards raw against Wait after a concurrent Close
	raw []unix.EpollEvent
}

// New creates an epoll instance with its wake eventfd pre-registered.
func New() (api.Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakeFD, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakeFD)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFD, &ev); err != nil {
		unix.Close(wakeFD)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add wakefd: %w", err)
	}
	return &epollPoller{epfd: epfd, wakeFD: wakeFD}, nil
}

func interestToEpoll(interest api.EventType) uint32 {
	var events uint32
	if interest&api.EventRead != 0 {
		events |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if interest&api.EventWrite != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

// Add registers fd with the given interest set.
func (p *epollPoller) Add(fd int, interest api.EventType) error {
	ev := unix.EpollEvent{Events: interestToEpoll(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add fd=%d: %w", fd, err)
	}
	return nil
}

// Mod replaces the interest set of fd.
func (p *epollPoller) Mod(fd int, interest api.EventType) error {
	ev := unix.EpollEvent{Events: interestToEpoll(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod fd=%d: %w", fd, err)
	}
	return nil
}

// Del cancels the registration of fd.
func (p *epollPoller) Del(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Wait blocks until readiness or a wakeup. Wake notifications are
// consumed internally and never surface as events; an interrupted wait
// reports (0, nil) so the caller re-checks its inbox.
func (p *epollPoller) Wait(events []api.Event) (int, error) {
	p.mu.Lock()
	if len(p.raw) < len(events)+1 {
		// one extra slot so the wake eventfd cannot crowd out a real event
		p.raw = make([]unix.EpollEvent, len(events)+1)
	}
	raw := p.raw[:len(events)+1]
	p.mu.Unlock()

	n, err := unix.EpollWait(p.epfd, raw, -1)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	out := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		if fd == p.wakeFD {
			p.drainWake()
			continue
		}
		var t api.EventType
		// EPOLLHUP surfaces as readability so the owning loop observes
		// the orderly EOF through read(2); only EPOLLERR is an error.
		if raw[i].Events&(unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLHUP) != 0 {
			t |= api.EventRead
		}
		if raw[i].Events&unix.EPOLLOUT != 0 {
			t |= api.EventWrite
		}
		if raw[i].Events&unix.EPOLLERR != 0 {
			t |= api.EventError
		}
		events[out] = api.Event{FD: fd, Type: t}
		out++
	}
	return out, nil
}

// Wake bumps the eventfd counter. The counter is sticky: if the loop is
// not blocked right now, its next Wait returns immediately.
func (p *epollPoller) Wake() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(p.wakeFD, buf[:])
	if err == unix.EAGAIN {
		// counter saturated, a wakeup is already pending
		return nil
	}
	if err != nil {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

func (p *epollPoller) drainWake() {
	var buf [8]byte
	// a single read clears the eventfd counter entirely
	_, _ = unix.Read(p.wakeFD, buf[:])
}

// Close releases the epoll instance and the wake eventfd.
func (p *epollPoller) Close() error {
	err := unix.Close(p.wakeFD)
	if cerr := unix.Close(p.epfd); err == nil {
		err = cerr
	}
	return err
}
