package flightlog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aerobench/quadsim/internal/quad"
)

// Episode is one recorded simulation run.
type Episode struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	Label       string    `json:"label"`
	Seed        int64     `json:"seed"`
	ConfigJSON  string    `json:"config_json"`
	Steps       int64     `json:"steps"`
	Duration    float64   `json:"duration"`
	TotalReward float64   `json:"total_reward"`
}

// Tick is the true vehicle state after one control step, together with the
// policy action that produced it.
type Tick struct {
	Step   int64
	Time   float64
	State  quad.State
	Action [4]float64
	Reward float64
	Age    float64
}

// CreateEpisode inserts a new episode row. An empty ID is filled with a
// fresh UUID.
func (db *DB) CreateEpisode(ep *Episode) error {
	if ep.ID == "" {
		ep.ID = uuid.New().String()
	}
	if ep.ConfigJSON == "" {
		ep.ConfigJSON = "{}"
	}
	_, err := db.Exec(`
		INSERT INTO episodes (id, label, seed, config_json)
		VALUES (?, ?, ?, ?)
	`, ep.ID, ep.Label, ep.Seed, ep.ConfigJSON)
	if err != nil {
		return fmt.Errorf("failed to create episode: %w", err)
	}
	return nil
}

// AppendTicks stores a batch of ticks for the episode in one transaction and
// updates the episode's running totals.
func (db *DB) AppendTicks(episodeID string, ticks []Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO ticks (
			episode_id, step, sim_time,
			pos_x, pos_y, pos_z,
			vel_x, vel_y, vel_z,
			quat_w, quat_x, quat_y, quat_z,
			ang_x, ang_y, ang_z,
			rotor_0, rotor_1, rotor_2, rotor_3,
			action_0, action_1, action_2, action_3,
			reward, obs_age
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare tick insert: %w", err)
	}
	defer stmt.Close()

	reward := 0.0
	for _, tk := range ticks {
		s := tk.State
		_, err := stmt.Exec(
			episodeID, tk.Step, tk.Time,
			s.Position.X, s.Position.Y, s.Position.Z,
			s.Velocity.X, s.Velocity.Y, s.Velocity.Z,
			s.Rotation.W, s.Rotation.X, s.Rotation.Y, s.Rotation.Z,
			s.AngularVelocity.X, s.AngularVelocity.Y, s.AngularVelocity.Z,
			s.RotorSpeed[0], s.RotorSpeed[1], s.RotorSpeed[2], s.RotorSpeed[3],
			tk.Action[0], tk.Action[1], tk.Action[2], tk.Action[3],
			tk.Reward, tk.Age,
		)
		if err != nil {
			return fmt.Errorf("failed to insert tick %d: %w", tk.Step, err)
		}
		reward += tk.Reward
	}

	last := ticks[len(ticks)-1]
	_, err = tx.Exec(`
		UPDATE episodes
		SET steps = ?, duration = ?, total_reward = total_reward + ?
		WHERE id = ?
	`, last.Step+1, last.Time, reward, episodeID)
	if err != nil {
		return fmt.Errorf("failed to update episode totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ticks: %w", err)
	}
	return nil
}

// GetEpisode retrieves one episode by ID.
func (db *DB) GetEpisode(id string) (*Episode, error) {
	var ep Episode
	err := db.QueryRow(`
		SELECT id, started_at, label, seed, config_json, steps, duration, total_reward
		FROM episodes WHERE id = ?
	`, id).Scan(&ep.ID, &ep.StartedAt, &ep.Label, &ep.Seed, &ep.ConfigJSON,
		&ep.Steps, &ep.Duration, &ep.TotalReward)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("episode %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get episode: %w", err)
	}
	return &ep, nil
}

// ListEpisodes returns all episodes, newest first.
func (db *DB) ListEpisodes() ([]Episode, error) {
	rows, err := db.Query(`
		SELECT id, started_at, label, seed, config_json, steps, duration, total_reward
		FROM episodes ORDER BY started_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	defer rows.Close()

	var eps []Episode
	for rows.Next() {
		var ep Episode
		if err := rows.Scan(&ep.ID, &ep.StartedAt, &ep.Label, &ep.Seed, &ep.ConfigJSON,
			&ep.Steps, &ep.Duration, &ep.TotalReward); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		eps = append(eps, ep)
	}
	return eps, rows.Err()
}

// Ticks returns the recorded ticks of an episode in step order.
func (db *DB) Ticks(episodeID string) ([]Tick, error) {
	rows, err := db.Query(`
		SELECT step, sim_time,
			pos_x, pos_y, pos_z,
			vel_x, vel_y, vel_z,
			quat_w, quat_x, quat_y, quat_z,
			ang_x, ang_y, ang_z,
			rotor_0, rotor_1, rotor_2, rotor_3,
			action_0, action_1, action_2, action_3,
			reward, obs_age
		FROM ticks WHERE episode_id = ? ORDER BY step
	`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticks: %w", err)
	}
	defer rows.Close()

	var ticks []Tick
	for rows.Next() {
		var tk Tick
		s := &tk.State
		err := rows.Scan(&tk.Step, &tk.Time,
			&s.Position.X, &s.Position.Y, &s.Position.Z,
			&s.Velocity.X, &s.Velocity.Y, &s.Velocity.Z,
			&s.Rotation.W, &s.Rotation.X, &s.Rotation.Y, &s.Rotation.Z,
			&s.AngularVelocity.X, &s.AngularVelocity.Y, &s.AngularVelocity.Z,
			&s.RotorSpeed[0], &s.RotorSpeed[1], &s.RotorSpeed[2], &s.RotorSpeed[3],
			&tk.Action[0], &tk.Action[1], &tk.Action[2], &tk.Action[3],
			&tk.Reward, &tk.Age,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tick: %w", err)
		}
		ticks = append(ticks, tk)
	}
	return ticks, rows.Err()
}

// DeleteEpisode removes an episode and its ticks.
func (db *DB) DeleteEpisode(id string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM ticks WHERE episode_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete ticks: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM episodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete episode: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("episode %s not found", id)
	}
	return tx.Commit()
}
