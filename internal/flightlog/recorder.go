package flightlog

// Recorder buffers ticks for one episode and writes them in batches. One
// transaction per control tick would dominate the simulation cost.
type Recorder struct {
	db    *DB
	ep    *Episode
	buf   []Tick
	batch int
}

// DefaultBatchSize is how many ticks a recorder buffers before writing.
const DefaultBatchSize = 256

// NewRecorder creates the episode row and returns a recorder for it.
// batch <= 0 selects DefaultBatchSize.
func (db *DB) NewRecorder(ep *Episode, batch int) (*Recorder, error) {
	if err := db.CreateEpisode(ep); err != nil {
		return nil, err
	}
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Recorder{db: db, ep: ep, batch: batch}, nil
}

// Episode returns the episode being recorded.
func (r *Recorder) Episode() *Episode { return r.ep }

// Record buffers one tick, flushing when the batch is full.
func (r *Recorder) Record(tk Tick) error {
	r.buf = append(r.buf, tk)
	if len(r.buf) >= r.batch {
		return r.Flush()
	}
	return nil
}

// Flush writes all buffered ticks.
func (r *Recorder) Flush() error {
	if len(r.buf) == 0 {
		return nil
	}
	if err := r.db.AppendTicks(r.ep.ID, r.buf); err != nil {
		return err
	}
	r.buf = r.buf[:0]
	return nil
}

// Close flushes any remaining ticks. The episode row keeps its accumulated
// totals.
func (r *Recorder) Close() error {
	return r.Flush()
}
