package automl

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// MockTrainer fabricates scores from a seeded generator, so equal seeds give
// equal results. Feature importance comes from |Pearson r| against the target
// where it is defined, otherwise from the generator.
type MockTrainer struct {
	seed int64
}

func NewMockTrainer(seed int64) *MockTrainer { return &MockTrainer{seed: seed} }

func (m *MockTrainer) Name() string { return "mock" }

func (m *MockTrainer) Train(ctx context.Context, t *dataset.Table, cfg TrainConfig) (*ModelResults, error) {
	cfg, err := validate(t, cfg)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(m.seed))

	target, rows := encodeColumn(t, cfg.TargetColumn)
	if len(rows) < 2 {
		return nil, ErrNotEnoughData
	}

	importance := make([]FeatureImportance, 0, len(cfg.Features))
	var total float64
	for _, f := range cfg.Features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w := correlation(t, f, target)
		if math.IsNaN(w) {
			w = 0.05 + 0.3*rng.Float64()
		}
		importance = append(importance, FeatureImportance{Feature: f, Importance: w})
		total += w
	}
	for i := range importance {
		if total > 0 {
			importance[i].Importance = round3(importance[i].Importance / total)
		}
	}
	sort.SliceStable(importance, func(i, j int) bool {
		return importance[i].Importance > importance[j].Importance
	})

	algos := ClassificationAlgorithms
	base := 0.75
	if cfg.Task == Regression {
		algos = RegressionAlgorithms
		base = 0.70
	}
	board := make([]ModelScore, len(algos))
	for i, a := range algos {
		board[i] = ModelScore{Model: a, Score: round3(base + 0.22*rng.Float64())}
	}
	sort.SliceStable(board, func(i, j int) bool { return board[i].Score > board[j].Score })
	best := board[0]

	n := len(rows)
	test := max(1, int(math.Round(float64(n)*cfg.TestSplit)))
	if test >= n {
		test = n - 1
	}
	res := &ModelResults{
		BestModel:            best.Model,
		Task:                 cfg.Task,
		TargetColumn:         cfg.TargetColumn,
		CrossValidationScore: round3(best.Score - 0.04*rng.Float64()),
		FeatureImportance:    importance,
		Leaderboard:          board,
		TrainRows:            n - test,
		TestRows:             test,
	}
	score := best.Score
	if cfg.Task == Classification {
		res.Accuracy = &score
		res.ConfusionMatrix = confusion(test, score, rng)
	} else {
		res.R2Score = &score
		mse := round3((1 - score) * stat.Variance(numericOrCodes(target, rows), nil))
		res.MSE = &mse
	}
	return res, nil
}

// encodeColumn reads a column as numbers, label-encoding values that do not
// parse. Missing cells are left out; rows lists the indexes that have a value.
func encodeColumn(t *dataset.Table, col string) (map[int]float64, []int) {
	out := make(map[int]float64, len(t.Rows))
	var rows []int
	codes := map[string]float64{}
	for i, r := range t.Rows {
		c := r[col]
		if c.IsMissing() {
			continue
		}
		v, ok := c.Float()
		if !ok {
			code, seen := codes[c.String()]
			if !seen {
				code = float64(len(codes))
				codes[c.String()] = code
			}
			v = code
		}
		out[i] = v
		rows = append(rows, i)
	}
	return out, rows
}

// correlation returns |r| between feature and target over rows where both
// have a value, or NaN when fewer than three pairs exist or r is undefined.
func correlation(t *dataset.Table, feature string, target map[int]float64) float64 {
	fv, rows := encodeColumn(t, feature)
	var xs, ys []float64
	for _, i := range rows {
		y, ok := target[i]
		if !ok {
			continue
		}
		xs = append(xs, fv[i])
		ys = append(ys, y)
	}
	if len(xs) < 3 {
		return math.NaN()
	}
	return math.Abs(stat.Correlation(xs, ys, nil))
}

func numericOrCodes(values map[int]float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = values[r]
	}
	return out
}

// confusion spreads test predictions over a 2x2 matrix with the given accuracy.
func confusion(test int, accuracy float64, rng *rand.Rand) [][]int {
	correct := int(math.Round(float64(test) * accuracy))
	wrong := test - correct
	tp := correct / 2
	if correct > 0 {
		tp = rng.Intn(correct + 1)
	}
	fp := wrong / 2
	return [][]int{{tp, fp}, {wrong - fp, correct - tp}}
}

func round3(f float64) float64 { return math.Round(f*1000) / 1000 }
