package classifier

import (
	"SDNGuard/internal/metrics"
	"SDNGuard/internal/model"
	"context"
	"log"
	"time"
)

// ClassifiedPriority is the only rule priority whose samples are classified:
// the per-flow forwarding rules. Table-miss (0) and drop (2) rules are not.
const ClassifiedPriority uint16 = 1

// Mitigator receives verdicts. It is satisfied by *mitigation.Engine.
type Mitigator interface {
	IsBlocked(src string) bool
	Apply(ctx context.Context, dpid model.DatapathID, sample model.FlowSample, verdict model.Verdict) error
}

// Classifier turns flow-stats samples into verdicts and hands them on.
type Classifier struct {
	predictor model.Predictor
	mitigator Mitigator
	timeout   time.Duration
}

// New creates a classifier. timeout bounds each prediction.
func New(predictor model.Predictor, mitigator Mitigator, timeout time.Duration) *Classifier {
	return &Classifier{predictor: predictor, mitigator: mitigator, timeout: timeout}
}

// Eligible reports whether a sample is a forwarding rule that saw traffic.
func Eligible(f model.FlowSample) bool {
	return f.Priority == ClassifiedPriority && f.PacketCount > 0
}

// Result counts what happened to one stats reply.
type Result struct {
	Classified int
	Malicious  int
	Skipped    int
	Errors     int
}

// Classify runs every eligible sample of a reply through the predictor. A
// failing sample is logged and skipped; the rest of the batch still runs.
func (c *Classifier) Classify(ctx context.Context, dpid model.DatapathID, flows []model.FlowSample) Result {
	var res Result
	for _, f := range flows {
		if !Eligible(f) {
			continue
		}
		src := f.Match.IPv4Src
		if src == "" || c.mitigator.IsBlocked(src) {
			res.Skipped++
			continue
		}

		verdict, err := c.predict(ctx, f)
		if err != nil {
			log.Printf("ERROR: prediction failed for %s on switch %s: %v", src, dpid, err)
			metrics.ClassificationErrors.Inc()
			res.Errors++
			continue
		}
		res.Classified++
		metrics.Classifications.WithLabelValues(verdict.String()).Inc()

		if verdict == model.VerdictMalicious {
			res.Malicious++
			log.Printf("Warning: attack detected from source %s on switch %s", src, dpid)
		} else {
			log.Printf("Normal traffic from source %s on switch %s", src, dpid)
		}

		if err := c.mitigator.Apply(ctx, dpid, f, verdict); err != nil {
			log.Printf("ERROR: mitigation failed for %s: %v", src, err)
			res.Errors++
		}
	}
	return res
}

func (c *Classifier) predict(ctx context.Context, f model.FlowSample) (model.Verdict, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.predictor.Predict(ctx, f.Features())
}
