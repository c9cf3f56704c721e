// Package lineage consumes merge events and persists their trace: the
// lineage graph edge and the audit record.
package lineage

import (
	"context"
	"time"

	domainMol "github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/messaging/kafka"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/prometheus"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

// MergeRecorder handles ctk.molecule.merged messages.  Both writes are
// idempotent, so a redelivered message is safe to process again.
type MergeRecorder struct {
	graph   domainMol.LineageStore
	records domainMol.MergeRecordRepository
	timeout time.Duration
	metrics *prometheus.ToolkitMetrics
	logger  logging.Logger
}

// NewMergeRecorder needs at least one of graph and records.
func NewMergeRecorder(graph domainMol.LineageStore, records domainMol.MergeRecordRepository,
	timeout time.Duration, metrics *prometheus.ToolkitMetrics, logger logging.Logger) (*MergeRecorder, error) {
	if graph == nil && records == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "merge recorder needs neo4j or postgres")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MergeRecorder{
		graph:   graph,
		records: records,
		timeout: timeout,
		metrics: metrics,
		logger:  logger.Named("lineage"),
	}, nil
}

// Handle implements common.MessageHandler.
func (r *MergeRecorder) Handle(ctx context.Context, msg *common.ConsumerMessage) (err error) {
	start := time.Now()
	defer func() { prometheus.RecordConsume(r.metrics, msg.Topic, err, time.Since(start)) }()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	ev, err := kafka.DecodeMergedEvent(msg)
	if err != nil {
		r.logger.Warn("undecodable merge event",
			logging.String("topic", msg.Topic), logging.Int64("offset", msg.Offset), logging.Err(err))
		return err
	}
	log := r.logger.With(logging.String("event_id", ev.EventID()))

	if r.graph != nil {
		gerr := r.graph.RecordMerge(ctx, ev)
		prometheus.RecordLineageWrite(r.metrics, gerr)
		if gerr != nil {
			log.Error("lineage write failed", logging.Err(gerr))
			return gerr
		}
	}
	if r.records != nil {
		if err := r.records.Save(ctx, domainMol.MergeRecordFromEvent(ev)); err != nil {
			log.Error("merge record write failed", logging.Err(err))
			return err
		}
	}
	log.Debug("merge event recorded",
		logging.String("result", ev.ResultNotation), logging.Bool("self_merge", ev.SelfMerge))
	return nil
}
