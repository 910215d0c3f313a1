package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-server/internal/domain"
)

// Mode indicates whether real checkpoint weights are loaded.
type Mode string

const (
	ModeTrained Mode = "trained"
	ModeDemo    Mode = "demo"
)

// DemoConfidenceCap is the maximum confidence advertised in demo mode.
const DemoConfidenceCap = 0.50

// ModelState describes the process-wide classifier state. Populated once at
// startup and immutable afterwards.
type ModelState struct {
	Mode           Mode   `json:"mode"`
	CheckpointPath string `json:"checkpoint_path,omitempty"`
	Window         int    `json:"window"`
	Device         string `json:"device"`
}

// Prediction is one classifier output.
type Prediction struct {
	Class      domain.FunctionClass `json:"function_class"`
	Confidence float64              `json:"confidence"`
	DemoMode   bool                 `json:"demo_mode"`
}

// Predictor wraps the network with encoding and a two-tier prediction cache:
// an in-memory LRU and an optional Redis tier. Deterministic inference makes
// coordinate-keyed caching safe.
type Predictor struct {
	net     *Network
	encoder *Encoder
	state   ModelState
	logger  *logrus.Logger

	memCache *lru.Cache[string, Prediction]
	redis    *redis.Client
	redisTTL time.Duration
}

// NewPredictor constructs the classifier. A missing or unreadable checkpoint
// is not an error: the predictor enters demo mode permanently for the
// process lifetime and clamps every confidence to DemoConfidenceCap.
func NewPredictor(
	modelCfg *domain.ModelConfig,
	cacheCfg *domain.CacheConfig,
	source SequenceSource,
	logger *logrus.Logger,
) (*Predictor, error) {
	memSize := 2048
	if cacheCfg != nil && cacheCfg.MemorySize > 0 {
		memSize = cacheCfg.MemorySize
	}
	memCache, err := lru.New[string, Prediction](memSize)
	if err != nil {
		return nil, fmt.Errorf("creating prediction cache: %w", err)
	}

	p := &Predictor{
		encoder:  NewEncoder(source, modelCfg.Window),
		logger:   logger,
		memCache: memCache,
	}
	p.state = ModelState{
		Mode:   ModeDemo,
		Window: p.encoder.WindowLength(),
		Device: "cpu",
	}

	if cacheCfg != nil && cacheCfg.RedisEnabled {
		opts, err := redis.ParseURL(cacheCfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %w", err)
		}
		p.redis = redis.NewClient(opts)
		p.redisTTL = cacheCfg.RedisTTL
		if p.redisTTL <= 0 {
			p.redisTTL = 24 * time.Hour
		}
	}

	if _, statErr := os.Stat(modelCfg.CheckpointPath); statErr == nil {
		net, loadErr := LoadCheckpoint(modelCfg.CheckpointPath)
		if loadErr != nil {
			logger.WithError(loadErr).Warn("Failed to load checkpoint, entering demo mode")
		} else {
			p.net = net
			p.state.Mode = ModeTrained
			p.state.CheckpointPath = modelCfg.CheckpointPath
			logger.WithField("checkpoint", modelCfg.CheckpointPath).Info("Loaded classifier weights")
		}
	} else {
		logger.WithFields(logrus.Fields{
			"checkpoint":     modelCfg.CheckpointPath,
			"confidence_cap": DemoConfidenceCap,
		}).Warn("No checkpoint found, classifier running in demo mode")
	}

	if p.net == nil {
		p.net = NewDemoNetwork(modelCfg.DemoSeed)
	}

	return p, nil
}

// State returns the immutable model state.
func (p *Predictor) State() ModelState {
	return p.state
}

// DemoMode reports whether the process is serving demo-mode predictions.
func (p *Predictor) DemoMode() bool {
	return p.state.Mode == ModeDemo
}

// Predict encodes the variant window and classifies it, consulting the
// prediction cache first. Inference is read-only over model parameters and
// safe for concurrent callers; cancellation via ctx abandons the call
// without corrupting any shared state.
func (p *Predictor) Predict(ctx context.Context, v *domain.Variant) (Prediction, error) {
	key := v.Key()
	if pred, ok := p.memCache.Get(key); ok {
		return pred, nil
	}
	if pred, ok := p.redisGet(ctx, key); ok {
		p.memCache.Add(key, pred)
		return pred, nil
	}

	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	tensor := p.encoder.Encode(v.Chromosome, v.Position, v.Reference, v.Alternate)
	pred, err := p.PredictTensor(tensor)
	if err != nil {
		if infErr, ok := err.(*domain.InferenceError); ok {
			infErr.Key = key
		}
		return Prediction{}, err
	}

	p.memCache.Add(key, pred)
	p.redisSet(ctx, key, pred)

	p.logger.WithFields(logrus.Fields{
		"variant":        key,
		"function_class": pred.Class,
		"confidence":     pred.Confidence,
		"demo_mode":      pred.DemoMode,
	}).Debug("ML prediction")

	return pred, nil
}

// PredictTensor classifies an already-encoded window. A malformed tensor
// shape yields a domain.InferenceError, fatal for that single variant only.
func (p *Predictor) PredictTensor(t *Tensor) (Prediction, error) {
	if t == nil || t.Channels != len(Bases) || t.Length != p.state.Window {
		got := "nil"
		if t != nil {
			got = fmt.Sprintf("%dx%d", t.Channels, t.Length)
		}
		return Prediction{}, &domain.InferenceError{
			Reason: fmt.Sprintf("malformed tensor shape %s, expected %dx%d", got, len(Bases), p.state.Window),
		}
	}

	logProbs, err := p.net.Forward(t)
	if err != nil {
		return Prediction{}, &domain.InferenceError{Reason: err.Error()}
	}

	best := 0
	for i := 1; i < len(logProbs); i++ {
		if logProbs[i] > logProbs[best] {
			best = i
		}
	}
	confidence := math.Exp(logProbs[best])

	demo := p.DemoMode()
	if demo && confidence > DemoConfidenceCap {
		confidence = DemoConfidenceCap
	}

	return Prediction{
		Class:      domain.FunctionClasses[best],
		Confidence: math.Round(confidence*1e4) / 1e4,
		DemoMode:   demo,
	}, nil
}

func (p *Predictor) redisGet(ctx context.Context, key string) (Prediction, bool) {
	if p.redis == nil {
		return Prediction{}, false
	}
	raw, err := p.redis.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		return Prediction{}, false
	}
	var pred Prediction
	if err := json.Unmarshal(raw, &pred); err != nil {
		return Prediction{}, false
	}
	return pred, true
}

func (p *Predictor) redisSet(ctx context.Context, key string, pred Prediction) {
	if p.redis == nil {
		return
	}
	raw, err := json.Marshal(pred)
	if err != nil {
		return
	}
	if err := p.redis.Set(ctx, redisKey(key), raw, p.redisTTL).Err(); err != nil {
		p.logger.WithError(err).Debug("Redis prediction cache write failed")
	}
}

func redisKey(variantKey string) string {
	return "pgx:prediction:" + variantKey
}

// Process-wide singleton guard: the classifier is constructed once at
// service startup and treated as immutable shared-read state afterwards.
var (
	defaultOnce      sync.Once
	defaultPredictor *Predictor
	defaultErr       error
)

// LoadDefault initializes the shared predictor exactly once. Later calls
// return the same instance regardless of arguments; there is no per-request
// retry out of demo mode.
func LoadDefault(
	modelCfg *domain.ModelConfig,
	cacheCfg *domain.CacheConfig,
	source SequenceSource,
	logger *logrus.Logger,
) (*Predictor, error) {
	defaultOnce.Do(func() {
		defaultPredictor, defaultErr = NewPredictor(modelCfg, cacheCfg, source, logger)
	})
	return defaultPredictor, defaultErr
}
