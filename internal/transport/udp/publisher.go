// SPDX-License-Identifier: MIT

// Package udp streams the latest analysis result as compact binary datagrams
// for low-latency visualisers.
package udp

import (
	"errors"
	"sync"
	"time"

	"vocalscan/internal/analysis"
	"vocalscan/internal/log"
)

// DefaultInterval is used when the publisher is created with a non-positive
// interval.
const DefaultInterval = 33 * time.Millisecond

// Snapshotter exposes the most recent analysed frame. LatestInto copies the
// quantized spectrum into dst and returns the descriptor and the number of
// bins written; n == 0 means no frame is available yet.
type Snapshotter interface {
	LatestInto(dst []uint8) (d analysis.Descriptor, n int)
}

// PacketSender writes one datagram.
type PacketSender interface {
	Send(data []byte) error
}

// Publisher periodically packs the latest snapshot and sends it.
type Publisher struct {
	sender   PacketSender
	source   Snapshotter
	interval time.Duration
	now      func() time.Time

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	seq      uint32
	spectrum []uint8
	packet   []byte
}

// NewPublisher creates a publisher carrying up to bins spectrum bins.
func NewPublisher(interval time.Duration, bins int, sender PacketSender, source Snapshotter) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("udp publisher: sender cannot be nil")
	}
	if source == nil {
		return nil, errors.New("udp publisher: source cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultInterval
		log.Warnf("udp publisher: invalid interval, defaulting to %s", interval)
	}
	bins = min(max(bins, 0), MaxBins)
	return &Publisher{
		sender:   sender,
		source:   source,
		interval: interval,
		now:      time.Now,
		spectrum: make([]uint8, bins),
		packet:   make([]byte, 0, HeaderSize+bins),
	}, nil
}

// Start launches the publishing goroutine. Calling Start while running is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("udp publisher: Start called but already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker, doneChan := p.ticker, p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Debugf("udp publisher: started (interval %s, %d bins)", p.interval, len(p.spectrum))
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop terminates the goroutine and waits for it. Repeated calls are no-ops.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	log.Debugf("udp publisher: stopped after %d packets", p.seq)
	return nil
}

// Close stops the publisher.
func (p *Publisher) Close() error {
	return p.Stop()
}

// publish sends one packet if a frame is available and reports whether it did.
func (p *Publisher) publish() bool {
	d, n := p.source.LatestInto(p.spectrum)
	if n == 0 {
		return false
	}
	p.seq++
	p.packet = AppendPacket(p.packet[:0], Packet{
		Seq:        p.seq,
		Timestamp:  p.now().UnixNano(),
		Descriptor: d,
		Spectrum:   p.spectrum[:min(n, len(p.spectrum))],
	})
	if err := p.sender.Send(p.packet); err != nil {
		log.Debugf("udp publisher: packet %d: %v", p.seq, err)
		return false
	}
	return true
}

var _ interface{ Close() error } = (*Publisher)(nil)
