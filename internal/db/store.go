package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/walkby.report/internal/walkby"
)

// RecordSamples stores a batch of raw samples in one transaction.
func (db *DB) RecordSamples(samples []walkby.RawSample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO raw_samples
		(session_id, device_id, signal, unix_millis, value)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err := stmt.Exec(s.SessionID, s.DeviceID, string(s.Signal), s.UnixMillis, s.Value); err != nil {
			return fmt.Errorf("inserting sample: %w", err)
		}
	}
	return tx.Commit()
}

// AllSamples loads every stored raw sample in insertion order.
func (db *DB) AllSamples() ([]walkby.RawSample, error) {
	rows, err := db.Query(`SELECT session_id, device_id, signal, unix_millis, value
		FROM raw_samples ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []walkby.RawSample
	for rows.Next() {
		var s walkby.RawSample
		var signal string
		if err := rows.Scan(&s.SessionID, &s.DeviceID, &signal, &s.UnixMillis, &s.Value); err != nil {
			return nil, err
		}
		s.Signal = walkby.Signal(signal)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// SampleCount returns the number of stored raw samples.
func (db *DB) SampleCount() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM raw_samples").Scan(&n)
	return n, err
}

// RecordAnalysisRun stores a completed run with its hourly buckets,
// busy periods and clusters in one transaction.
func (db *DB) RecordAnalysisRun(res *walkby.AnalysisResult) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO analysis_runs
		(run_id, peak_hour, peak_score, peak_footfall, activity_rate,
		 sensor_backed, next_hour_footfall, next_hour_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.PeakHour, res.PeakScore, res.PeakFootfall,
		res.ActivityRate, res.SensorBacked, res.NextHour.Footfall, res.NextHour.Score,
	); err != nil {
		return fmt.Errorf("inserting analysis run: %w", err)
	}

	bucketStmt, err := tx.Prepare(`INSERT INTO hourly_buckets
		(run_id, hour, sample_count, confidence, avg_audio_db, avg_light_lux,
		 footfall, score, traffic_proxy, smoothed_footfall, smoothed_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer bucketStmt.Close()

	for h := range res.Buckets {
		b := &res.Buckets[h]
		var smoothedFootfall, smoothedScore float64
		if h < len(res.SmoothedFootfall) {
			smoothedFootfall = res.SmoothedFootfall[h]
		}
		if h < len(res.SmoothedScore) {
			smoothedScore = res.SmoothedScore[h]
		}
		if _, err := bucketStmt.Exec(res.RunID, h, b.SampleCount, b.Confidence,
			b.AvgAudioDB, b.AvgLightLux, b.Footfall, b.Score, b.TrafficProxy,
			smoothedFootfall, smoothedScore); err != nil {
			return fmt.Errorf("inserting bucket hour %d: %w", h, err)
		}
	}

	for _, period := range res.BusyPeriods {
		if _, err := tx.Exec(`INSERT INTO busy_periods
			(run_id, start_hour, end_hour, avg_footfall, avg_score, avg_audio_db, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, period.StartHour, period.EndHour, period.AvgFootfall,
			period.AvgScore, period.AvgAudioDB, period.Reason); err != nil {
			return fmt.Errorf("inserting busy period: %w", err)
		}
	}

	for _, cluster := range res.Clusters {
		memberHours, err := json.Marshal(cluster.MemberHours)
		if err != nil {
			return fmt.Errorf("encoding cluster members: %w", err)
		}
		if _, err := tx.Exec(`INSERT INTO clusters
			(run_id, cluster_id, label, member_hours,
			 centroid_audio_db, centroid_lux, centroid_footfall, centroid_score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, cluster.ID, string(cluster.Label), string(memberHours),
			cluster.Centroid[0], cluster.Centroid[1], cluster.Centroid[2], cluster.Centroid[3]); err != nil {
			return fmt.Errorf("inserting cluster %d: %w", cluster.ID, err)
		}
	}

	return tx.Commit()
}

// RunSummary is the run-level row without its hourly detail.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	CreatedAt    time.Time `json:"created_at"`
	PeakHour     int       `json:"peak_hour"`
	PeakScore    float64   `json:"peak_score"`
	PeakFootfall float64   `json:"peak_footfall"`
	ActivityRate float64   `json:"activity_rate"`
	SensorBacked bool      `json:"sensor_backed"`
}

// RecentRuns returns the newest runs, most recent first.
func (db *DB) RecentRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`SELECT run_id, created_at, peak_hour, peak_score,
		peak_footfall, activity_rate, sensor_backed
		FROM analysis_runs ORDER BY created_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(&run.RunID, &run.CreatedAt, &run.PeakHour, &run.PeakScore,
			&run.PeakFootfall, &run.ActivityRate, &run.SensorBacked); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads one stored run with its buckets, busy periods and
// clusters. Returns sql.ErrNoRows when the run does not exist.
func (db *DB) GetRun(runID string) (*walkby.AnalysisResult, error) {
	res := &walkby.AnalysisResult{RunID: runID}
	err := db.QueryRow(`SELECT peak_hour, peak_score, peak_footfall, activity_rate,
		sensor_backed, next_hour_footfall, next_hour_score
		FROM analysis_runs WHERE run_id = ?`, runID).Scan(
		&res.PeakHour, &res.PeakScore, &res.PeakFootfall, &res.ActivityRate,
		&res.SensorBacked, &res.NextHour.Footfall, &res.NextHour.Score)
	if err != nil {
		return nil, err
	}

	res.SmoothedFootfall = make([]float64, 24)
	res.SmoothedScore = make([]float64, 24)
	rows, err := db.Query(`SELECT hour, sample_count, confidence, avg_audio_db,
		avg_light_lux, footfall, score, traffic_proxy, smoothed_footfall, smoothed_score
		FROM hourly_buckets WHERE run_id = ? ORDER BY hour`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var hour int
		var b walkby.HourlyBucket
		var smoothedFootfall, smoothedScore float64
		if err := rows.Scan(&hour, &b.SampleCount, &b.Confidence, &b.AvgAudioDB,
			&b.AvgLightLux, &b.Footfall, &b.Score, &b.TrafficProxy,
			&smoothedFootfall, &smoothedScore); err != nil {
			return nil, err
		}
		if hour < 0 || hour > 23 {
			continue
		}
		b.Hour = hour
		res.Buckets[hour] = b
		res.SmoothedFootfall[hour] = smoothedFootfall
		res.SmoothedScore[hour] = smoothedScore
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if res.BusyPeriods, err = db.runBusyPeriods(runID); err != nil {
		return nil, err
	}
	if res.Clusters, err = db.runClusters(runID); err != nil {
		return nil, err
	}
	return res, nil
}

func (db *DB) runBusyPeriods(runID string) ([]walkby.BusyPeriod, error) {
	rows, err := db.Query(`SELECT start_hour, end_hour, avg_footfall, avg_score,
		avg_audio_db, reason FROM busy_periods
		WHERE run_id = ? ORDER BY avg_score DESC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []walkby.BusyPeriod
	for rows.Next() {
		var period walkby.BusyPeriod
		if err := rows.Scan(&period.StartHour, &period.EndHour, &period.AvgFootfall,
			&period.AvgScore, &period.AvgAudioDB, &period.Reason); err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	return periods, rows.Err()
}

func (db *DB) runClusters(runID string) ([]walkby.Cluster, error) {
	rows, err := db.Query(`SELECT cluster_id, label, member_hours,
		centroid_audio_db, centroid_lux, centroid_footfall, centroid_score
		FROM clusters WHERE run_id = ? ORDER BY cluster_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []walkby.Cluster
	for rows.Next() {
		var cluster walkby.Cluster
		var label, memberHours string
		if err := rows.Scan(&cluster.ID, &label, &memberHours,
			&cluster.Centroid[0], &cluster.Centroid[1],
			&cluster.Centroid[2], &cluster.Centroid[3]); err != nil {
			return nil, err
		}
		cluster.Label = walkby.ClusterLabel(label)
		if err := json.Unmarshal([]byte(memberHours), &cluster.MemberHours); err != nil {
			return nil, fmt.Errorf("decoding cluster members: %w", err)
		}
		clusters = append(clusters, cluster)
	}
	return clusters, rows.Err()
}
