package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errFake = errors.New("fake platform failure")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentMessage struct {
	To  int64
	Msg Message
}

type threadPost struct {
	Thread ThreadRef
	Msg    Message
}

type fakePlatform struct {
	mu sync.Mutex

	dms      []sentMessage
	channel  []sentMessage
	threads  []threadPost
	titles   []string
	archived []ThreadRef

	channels    map[int64]bool
	unreachable map[int64]bool
	dmFail      map[int64]bool
	dmPanic     map[int64]bool

	channelFail bool
	threadFail  bool
	nextMsg     int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		channels:    map[int64]bool{staffChannel: true},
		unreachable: make(map[int64]bool),
		dmFail:      make(map[int64]bool),
		dmPanic:     make(map[int64]bool),
	}
}

const staffChannel int64 = -100500

func (p *fakePlatform) SendDirectMessage(_ context.Context, userID int64, msg Message) (MessageRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dmPanic[userID] {
		panic("send exploded")
	}
	if p.dmFail[userID] {
		return MessageRef{}, errFake
	}
	p.nextMsg++
	p.dms = append(p.dms, sentMessage{To: userID, Msg: msg})
	return MessageRef{ChatID: userID, MessageID: p.nextMsg}, nil
}

func (p *fakePlatform) SendChannelMessage(_ context.Context, channelID int64, msg Message) (MessageRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channelFail {
		return MessageRef{}, errFake
	}
	p.nextMsg++
	p.channel = append(p.channel, sentMessage{To: channelID, Msg: msg})
	return MessageRef{ChatID: channelID, MessageID: p.nextMsg}, nil
}

func (p *fakePlatform) CreateThread(_ context.Context, parent MessageRef, title string, _ time.Duration) (ThreadRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.threadFail {
		return ThreadRef{}, errFake
	}
	p.titles = append(p.titles, title)
	return ThreadRef{ChatID: parent.ChatID, ThreadID: parent.MessageID + 1000}, nil
}

func (p *fakePlatform) SendThreadMessage(_ context.Context, thread ThreadRef, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.threads = append(p.threads, threadPost{Thread: thread, Msg: msg})
	return nil
}

func (p *fakePlatform) ArchiveThread(_ context.Context, thread ThreadRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.archived = append(p.archived, thread)
	return nil
}

func (p *fakePlatform) ResolveChannel(_ context.Context, channelID int64) (Channel, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.channels[channelID] {
		return Channel{}, false
	}
	return Channel{ID: channelID, Title: "staff"}, true
}

func (p *fakePlatform) ResolveUser(_ context.Context, userID int64) (User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unreachable[userID] {
		return User{}, false
	}
	return User{ID: userID}, true
}

// dmsTo returns the message keys sent to one user, in order
func (p *fakePlatform) dmsTo(userID int64) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var keys []string
	for _, m := range p.dms {
		if m.To == userID {
			keys = append(keys, m.Msg.Key)
		}
	}
	return keys
}

func (p *fakePlatform) threadKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var keys []string
	for _, t := range p.threads {
		keys = append(keys, t.Msg.Key)
	}
	return keys
}

type memJournal struct {
	mu     sync.Mutex
	events []CaseEvent
	fail   bool
}

func (j *memJournal) Record(_ context.Context, ev CaseEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errFake
	}
	j.events = append(j.events, ev)
	return nil
}

func (j *memJournal) kinds() []CaseEventKind {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []CaseEventKind
	for _, ev := range j.events {
		out = append(out, ev.Kind)
	}
	return out
}
