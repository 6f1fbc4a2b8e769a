// checkpoint stores calibrations in a bolt database, so that a
// repeated run can skip the calibration.
package checkpoint

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	bolt "go.etcd.io/bbolt"

	"github.com/mrrlab/thetamc/mcmc"
)

var log = logging.MustGetLogger("checkpoint")

// MAIN is the bucket name for all checkpoints.
var MAIN = []byte("main")

// CheckpointData stores a calibration.
type CheckpointData struct {
	ID    uuid.UUID
	Start []float64
	// SqrtCov holds the rows of the lower triangular square root
	// covariance.
	SqrtCov   [][]float64
	NReduced  int
	JumpRates []float64
	// Final is set once the calibration has converged.
	Final   bool
	Created time.Time
}

// FromCalibration converts a calibration to checkpoint data.
func FromCalibration(id uuid.UUID, cal *mcmc.Calibration, final bool) *CheckpointData {
	n, _ := cal.SqrtCov.Triangle()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, i+1)
		for j := 0; j <= i; j++ {
			rows[i][j] = cal.SqrtCov.At(i, j)
		}
	}
	return &CheckpointData{
		ID:        id,
		Start:     append([]float64(nil), cal.Start...),
		SqrtCov:   rows,
		NReduced:  cal.NReduced,
		JumpRates: append([]float64(nil), cal.JumpRates...),
		Final:     final,
		Created:   time.Now(),
	}
}

// Calibration converts checkpoint data back to a calibration. The
// covariance is recomputed from its square root.
func (d *CheckpointData) Calibration() (*mcmc.Calibration, error) {
	n := len(d.Start)
	if len(d.SqrtCov) != n {
		return nil, errors.Wrapf(mcmc.ErrDimension, "start point %d, square root covariance %d", n, len(d.SqrtCov))
	}
	l := mat.NewTriDense(n, mat.Lower, nil)
	for i, row := range d.SqrtCov {
		if len(row) != i+1 {
			return nil, errors.Wrapf(mcmc.ErrDimension, "row %d has %d elements", i, len(row))
		}
		for j, v := range row {
			l.SetTri(i, j, v)
		}
	}
	cov := mat.NewSymDense(n, nil)
	cov.SymOuterK(1, l)
	return &mcmc.Calibration{
		Start:     append([]float64(nil), d.Start...),
		Cov:       cov,
		SqrtCov:   l,
		NReduced:  d.NReduced,
		JumpRates: append([]float64(nil), d.JumpRates...),
	}, nil
}

// CheckpointIO saves and loads checkpoints under one key.
type CheckpointIO struct {
	db      *bolt.DB
	key     []byte
	last    time.Time
	seconds float64
}

// NewCheckpointIO creates a new CheckpointIO.
func NewCheckpointIO(db *bolt.DB, key []byte, seconds float64) (s *CheckpointIO) {
	s = &CheckpointIO{
		db:      db,
		key:     key,
		seconds: seconds,
	}
	return
}

// Save saves checkpoint to the database.
func (s *CheckpointIO) Save(data *CheckpointData) error {
	// failed saves are throttled too
	s.SetNow()
	b, err := json.Marshal(data)
	if err != nil {
		log.Errorf("Error serializing checkpoint %s: %v", s.key, err)
		return errors.Wrap(err, "serializing checkpoint")
	}
	if err := SaveData(s.db, s.key, b); err != nil {
		log.Errorf("Error saving checkpoint %s: %v", s.key, err)
		return errors.Wrapf(err, "saving checkpoint %s", s.key)
	}
	log.Debugf("Saved checkpoint %s after %d passes", s.key, len(data.JumpRates))
	return nil
}

// Load returns the checkpoint, or nil if there is none.
func (s *CheckpointIO) Load() (*CheckpointData, error) {
	var data *CheckpointData

	b, err := LoadData(s.db, s.key)
	if err != nil || b == nil {
		return nil, err
	}

	if err := json.Unmarshal(b, &data); err != nil {
		return nil, errors.Wrapf(err, "parsing checkpoint %s", s.key)
	}

	if data == nil || len(data.Start) == 0 {
		return nil, nil
	}

	if data.Final {
		log.Noticef("Found finished calibration checkpoint (%d passes)", len(data.JumpRates))
	} else {
		log.Noticef("Found unfinished calibration checkpoint (%d passes)", len(data.JumpRates))
	}

	return data, nil
}

// OnPass returns a function for mcmc.Calibrator.OnPass which saves
// the calibration if the last save is old.
func (s *CheckpointIO) OnPass(id uuid.UUID) func(cal *mcmc.Calibration) {
	return func(cal *mcmc.Calibration) {
		if s.Old() {
			// errors are logged by Save
			_ = s.Save(FromCalibration(id, cal, false))
		}
	}
}

// Old reports whether the last save is more than the throttle period
// ago.
func (s *CheckpointIO) Old() bool {
	return time.Since(s.last).Seconds() > s.seconds
}

// SetNow marks a save at the current time.
func (s *CheckpointIO) SetNow() {
	s.last = time.Now()
}

// Open opens or creates the database at path.
func Open(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening checkpoint database %s", path)
	}
	return db, nil
}

// SaveData saves values in bolt database.
func SaveData(db *bolt.DB, key []byte, data []byte) error {
	if db == nil {
		return nil
	}
	err := db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(MAIN)
		if err != nil {
			return err
		}

		err = b.Put(key, data)
		return err
	})
	return err
}

// LoadData loads data from bolt database.
func LoadData(db *bolt.DB, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(MAIN)
		if b == nil {
			return nil
		}

		v := b.Get(key)
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
