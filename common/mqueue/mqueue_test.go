package mqueue

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/botlabs-gg/patchbot/common"
)

func TestMain(m *testing.M) {
	if err := common.InitTestRedis(); err != nil {
		fmt.Printf("Failed redis init, not running tests... %v \n", err)
		return
	}

	os.Exit(m.Run())
}

func TestMqueuePubsub(t *testing.T) {
	var wg sync.WaitGroup
	fakeProcessor := &FakeProcessor{
		retry: false,
		onHit: func(wi *workItem) {
			t.Log("hit process")
			wg.Done()
		},
	}

	// initialize
	backend := &RedisBackend{
		pool: common.RedisPool,
	}
	server := NewServer(backend, fakeProcessor)
	go server.Run()

	redisPubsub := RedisPushServer{
		pushwork:    server.PushWork,
		fullRefresh: server.refreshWork,
		selectDB:    2,
	}
	go redisPubsub.run()
	time.Sleep(time.Second)

	t.Log("init")

	// make sure it works!
	wg.Add(1)
	if err := QueueMessage(&QueuedElement{
		ChannelID:  100,
		GuildID:    10,
		Source:     "test",
		MessageStr: "test message",
	}); err != nil {
		t.Fatal(err)
	}

	t.Log("waiting for process")
	wg.Wait()

	t.Log("shutting down...")

	// shut down
	var stopWG sync.WaitGroup
	stopWG.Add(1)
	server.Stop <- &stopWG
	stopWG.Wait()
}

func TestMqueueRefresh(t *testing.T) {
	var wg sync.WaitGroup
	fakeProcessor := &FakeProcessor{
		retry: false,
		onHit: func(wi *workItem) {
			t.Log("hit process")
			wg.Done()
		},
	}

	// initialize
	backend := &RedisBackend{
		pool: common.RedisPool,
	}
	server := NewServer(backend, fakeProcessor)
	go server.Run()

	redisPubsub := RedisPushServer{
		pushwork:    server.PushWork,
		fullRefresh: server.refreshWork,
		selectDB:    2,
	}

	t.Log("init")

	// make sure it works!
	wg.Add(1)
	if err := QueueMessage(&QueuedElement{
		ChannelID:  100,
		GuildID:    10,
		Source:     "test",
		MessageStr: "test message",
	}); err != nil {
		t.Fatal(err)
	}

	wg.Add(1)
	if err := QueueMessage(&QueuedElement{
		ChannelID:  100,
		GuildID:    10,
		Source:     "test",
		MessageStr: "test message",
	}); err != nil {
		t.Fatal(err)
	}

	go redisPubsub.run()

	t.Log("waiting for process")
	wg.Wait()

	t.Log("shutting down...")

	// shut down
	var stopWG sync.WaitGroup
	stopWG.Add(1)
	server.Stop <- &stopWG
	stopWG.Wait()
}

type FakeProcessor struct {
	onHit func(wi *workItem)
	retry bool
}

func (f *FakeProcessor) ProcessItem(resp chan *workResult, wi *workItem) {
	f.onHit(wi)
	resp <- &workResult{
		item:  wi,
		retry: f.retry,
	}
}

// memStorage runs the server loop against plain memory instead of redis
type memStorage struct {
	mu      sync.Mutex
	items   []*workItem
	deleted []int64
	nextID  int64
}

func (m *memStorage) GetFullQueue() ([]*workItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*workItem, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *memStorage) AppendItem(elem *QueuedElement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = append(m.items, &workItem{Elem: elem})
	return nil
}

func (m *memStorage) DelItem(item *workItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleted = append(m.deleted, item.Elem.ID)
	for i, v := range m.items {
		if v.Elem.ID == item.Elem.ID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			break
		}
	}

	return nil
}

func (m *memStorage) NextID() (next int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	return m.nextID, nil
}

func (m *memStorage) deletedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.deleted)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(time.Second * 5)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}

		time.Sleep(time.Millisecond * 10)
	}

	t.Fatal("timed out waiting for ", what)
}

func TestMqueueServerBackendRefresh(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(3)
	fakeProcessor := &FakeProcessor{
		retry: false,
		onHit: func(wi *workItem) {
			wg.Done()
		},
	}

	storage := &memStorage{}
	for i := int64(1); i <= 3; i++ {
		storage.items = append(storage.items, &workItem{
			Elem: &QueuedElement{ID: i, ChannelID: i * 100, GuildID: 10, Source: "test"},
		})
	}

	server := NewServer(storage, fakeProcessor)
	go server.Run()

	server.refreshWork <- true

	wg.Wait()
	waitFor(t, "backend to drain", func() bool { return storage.deletedCount() == 3 })

	var stopWG sync.WaitGroup
	stopWG.Add(1)
	server.Stop <- &stopWG
	stopWG.Wait()
}

func TestMqueueServerChannelExclusive(t *testing.T) {
	proc := &gatedProcessor{release: make(chan struct{})}
	storage := &memStorage{}
	server := NewServer(storage, proc)
	go server.Run()

	server.PushWork <- &workItem{Elem: &QueuedElement{ID: 1, ChannelID: 100, GuildID: 10, Source: "test"}}
	server.PushWork <- &workItem{Elem: &QueuedElement{ID: 2, ChannelID: 100, GuildID: 10, Source: "test"}}
	server.PushWork <- &workItem{Elem: &QueuedElement{ID: 3, ChannelID: 200, GuildID: 10, Source: "test"}}

	waitFor(t, "the other channels item to start", func() bool { return len(proc.startedIDs()) == 2 })

	// the channels second item has to wait for the first
	time.Sleep(time.Millisecond * 100)
	for _, id := range proc.startedIDs() {
		if id == 2 {
			t.Fatal("started a second send in a channel that already had one active")
		}
	}

	close(proc.release)

	waitFor(t, "everything to finish", func() bool { return storage.deletedCount() == 3 })

	var stopWG sync.WaitGroup
	stopWG.Add(1)
	server.Stop <- &stopWG
	stopWG.Wait()
}

type gatedProcessor struct {
	mu      sync.Mutex
	started []int64
	release chan struct{}
}

func (g *gatedProcessor) ProcessItem(resp chan *workResult, wi *workItem) {
	g.mu.Lock()
	g.started = append(g.started, wi.Elem.ID)
	g.mu.Unlock()

	<-g.release

	resp <- &workResult{
		item:  wi,
		retry: false,
	}
}

func (g *gatedProcessor) startedIDs() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]int64, len(g.started))
	copy(out, g.started)
	return out
}
