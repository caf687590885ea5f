// Package dicomdir imports directories of DICOM files into the index.
//
// Files are read one at a time into single-instance chains and appended to a
// Pipeline buffer. The buffer is flushed in one transaction when it reaches
// capacity and again when the scan completes, so transaction cost is spread
// over many small files while memory stays bounded.
package dicomdir

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/dcmindex/entity"
	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/logger"
	"github.com/teranos/dcmindex/storage"
)

// Store is the part of the index the pipeline writes to.
type Store interface {
	InstanceExists(ctx context.Context, uid string) (bool, error)
	StorePatients(ctx context.Context, patients []*entity.Patient) (storage.WriteStats, error)
}

// FlushResult describes one flush.
type FlushResult struct {
	Buffered           int                `json:"buffered"`
	Stored             int                `json:"stored"`
	PresentationStates int                `json:"presentation_states"`
	Existing           int                `json:"existing"`
	Committed          bool               `json:"committed"`
	Write              storage.WriteStats `json:"write"`
	Duration           time.Duration      `json:"duration"`
}

// Pipeline buffers chains and flushes them in batched transactions.
// It is owned by one goroutine.
type Pipeline struct {
	store    Store
	capacity int
	logger   *zap.SugaredLogger

	buffer   []*entity.Patient
	buffered int

	flushes int
	totals  FlushResult
}

// NewPipeline creates a pipeline flushing every capacity instances.
// Capacity must be at least 1.
func NewPipeline(store Store, capacity int, log *zap.SugaredLogger) (*Pipeline, error) {
	p := &Pipeline{store: store, logger: logger.OrNop(log)}
	if err := p.SetCapacity(capacity); err != nil {
		return nil, err
	}
	return p, nil
}

// SetCapacity changes the flush threshold. Capacity below 1 fails with
// invalid-argument and leaves the pipeline unchanged.
func (p *Pipeline) SetCapacity(capacity int) error {
	if capacity < 1 {
		return errors.InvalidArgumentf("import buffer capacity must be >= 1, got %d", capacity)
	}
	p.capacity = capacity
	return nil
}

// Capacity returns the flush threshold.
func (p *Pipeline) Capacity() int { return p.capacity }

// Len returns the number of buffered instances.
func (p *Pipeline) Len() int { return p.buffered }

// Flushes returns how many flushes committed a transaction.
func (p *Pipeline) Flushes() int { return p.flushes }

// Totals accumulates every flush so far.
func (p *Pipeline) Totals() FlushResult { return p.totals }

// Add buffers chain and flushes when the buffer reaches capacity.
func (p *Pipeline) Add(ctx context.Context, chain *entity.Patient) error {
	if chain == nil {
		return errors.InvalidArgumentf("nil chain")
	}
	n := chain.InstanceCount()
	if n == 0 {
		return nil
	}
	p.buffer = append(p.buffer, chain)
	p.buffered += n
	if p.buffered >= p.capacity {
		_, err := p.Flush(ctx)
		return err
	}
	return nil
}

// Flush stores the buffer in one transaction, skipping presentation states
// and instances already indexed. When nothing remains no transaction is
// opened. The buffer is emptied even when the store fails.
func (p *Pipeline) Flush(ctx context.Context) (FlushResult, error) {
	start := time.Now()
	res := FlushResult{Buffered: p.buffered}
	chains := p.buffer
	p.buffer, p.buffered = nil, 0
	if len(chains) == 0 {
		return res, nil
	}

	forest := make(map[string]*entity.Patient)
	order := make([]string, 0, len(chains))
	for _, chain := range chains {
		if err := p.filter(ctx, chain, &res); err != nil {
			return res, err
		}
		if chain.Len() == 0 {
			continue
		}
		key := chain.Key()
		if _, ok := forest[key]; !ok {
			order = append(order, key)
		}
		entity.Merge(forest, chain)
	}

	if len(order) > 0 {
		patients := make([]*entity.Patient, 0, len(order))
		for _, key := range order {
			patients = append(patients, forest[key])
		}
		ws, err := p.store.StorePatients(ctx, patients)
		if err != nil {
			return res, errors.Wrapf(err, "failed to flush %d instances", res.Buffered)
		}
		res.Write = ws
		res.Committed = true
		p.flushes++
	}

	res.Duration = time.Since(start)
	p.accumulate(res)
	logger.FromContext(ctx, p.logger).Infow("Flushed import buffer",
		logger.FieldBatchSize, res.Buffered,
		"stored", res.Stored,
		"existing", res.Existing,
		"presentation_states", res.PresentationStates,
		logger.FieldDurationMS, res.Duration.Milliseconds(),
	)
	return res, nil
}

// filter removes presentation states and indexed instances from chain,
// pruning containers left empty.
func (p *Pipeline) filter(ctx context.Context, chain *entity.Patient, res *FlushResult) error {
	for _, st := range chain.Studies() {
		for _, se := range st.Series() {
			for _, inst := range se.Instances() {
				if inst.IsPresentationState() {
					se.Remove(inst.UID())
					res.PresentationStates++
					continue
				}
				exists, err := p.store.InstanceExists(ctx, inst.UID())
				if err != nil {
					return errors.Wrapf(err, "failed to check instance %s", inst.UID())
				}
				if exists {
					se.Remove(inst.UID())
					res.Existing++
					continue
				}
				res.Stored++
			}
			if se.Len() == 0 {
				st.Remove(se.UID)
			}
		}
		if st.Len() == 0 {
			chain.Remove(st.UID)
		}
	}
	return nil
}

func (p *Pipeline) accumulate(res FlushResult) {
	t := &p.totals
	t.Buffered += res.Buffered
	t.Stored += res.Stored
	t.PresentationStates += res.PresentationStates
	t.Existing += res.Existing
	t.Duration += res.Duration
	t.Write.Patients += res.Write.Patients
	t.Write.Studies += res.Write.Studies
	t.Write.Series += res.Write.Series
	t.Write.Instances += res.Write.Instances
	t.Write.References += res.Write.References
	t.Write.Existing += res.Write.Existing
	t.Write.Duration += res.Write.Duration
}
