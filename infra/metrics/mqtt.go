package metrics

import (
	"math"
	"time"

	coremetrics "github.com/kilianp07/vann/core/metrics"
)

// JSONPublisher publishes JSON encoded payloads. It is implemented by
// mqtt.PahoClient.
type JSONPublisher interface {
	Topic(parts ...string) string
	PublishJSON(topic string, retained bool, v any) error
}

// StepMessage is the JSON payload of a step. Observation is null for
// forecast-only steps.
type StepMessage struct {
	RunID        string             `json:"run_id"`
	Filter       string             `json:"filter"`
	Index        int                `json:"index"`
	Observation  *float64           `json:"observation"`
	ForecastMean float64            `json:"forecast_mean"`
	AnalysisMean float64            `json:"analysis_mean"`
	Quantiles    map[string]float64 `json:"quantiles"`
	Spread       float64            `json:"spread"`
	ESS          float64            `json:"ess"`
	Updated      bool               `json:"updated"`
	Skipped      bool               `json:"skipped"`
	Resampled    bool               `json:"resampled"`
	Time         time.Time          `json:"time"`
}

// RunMessage is the retained JSON payload describing a finished run.
type RunMessage struct {
	RunID      string    `json:"run_id"`
	Command    string    `json:"command"`
	Filter     string    `json:"filter,omitempty"`
	Status     string    `json:"status"`
	Steps      int       `json:"steps"`
	Members    int       `json:"members,omitempty"`
	Metric     string    `json:"metric,omitempty"`
	Score      *float64  `json:"score,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// MQTTSink forwards step summaries to an MQTT broker, one message per step
// on <prefix>/runs/<run_id>/steps.
type MQTTSink struct {
	pub JSONPublisher
}

// NewMQTTSink wraps a publisher.
func NewMQTTSink(pub JSONPublisher) *MQTTSink { return &MQTTSink{pub: pub} }

// NewStepMessage converts a step metric into its wire form.
func NewStepMessage(m coremetrics.StepMetric) StepMessage {
	msg := StepMessage{
		RunID:        m.RunID,
		Filter:       m.Filter,
		Index:        m.Index,
		ForecastMean: m.ForecastMean,
		AnalysisMean: m.AnalysisMean,
		Quantiles:    make(map[string]float64, len(m.Quantiles)),
		Spread:       m.Spread,
		ESS:          m.ESS,
		Updated:      m.Updated,
		Skipped:      m.Skipped,
		Resampled:    m.Resampled,
		Time:         m.Time,
	}
	if finite(m.Observation) {
		obs := m.Observation
		msg.Observation = &obs
	}
	for i, q := range m.Quantiles {
		if i < len(m.Probs) && finite(q) {
			msg.Quantiles[quantileField(m.Probs[i])] = q
		}
	}
	return msg
}

// RecordStep publishes the step summary.
func (s *MQTTSink) RecordStep(m coremetrics.StepMetric) error {
	return s.pub.PublishJSON(s.pub.Topic("runs", m.RunID, "steps"), false, NewStepMessage(m))
}

// RecordRun publishes a retained run status.
func (s *MQTTSink) RecordRun(m coremetrics.RunMetric) error {
	msg := RunMessage{
		RunID:      m.RunID,
		Command:    m.Command,
		Filter:     m.Filter,
		Status:     runStatus(m),
		Steps:      m.Steps,
		Members:    m.Members,
		Metric:     m.Metric,
		DurationMS: m.Duration.Milliseconds(),
		Error:      m.Err,
		Time:       m.Time,
	}
	if m.Metric != "" && finite(m.Score) {
		score := m.Score
		msg.Score = &score
	}
	return s.pub.PublishJSON(s.pub.Topic("runs", m.RunID, "status"), true, msg)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Close disconnects the underlying client when it supports it.
func (s *MQTTSink) Close() {
	if d, ok := s.pub.(interface{ Disconnect() }); ok {
		d.Disconnect()
	}
}
