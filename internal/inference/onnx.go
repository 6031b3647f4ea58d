package inference

import (
	"context"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/anime-shed/leaf-health-go/internal/catalog"
)

var (
	envMu      sync.Mutex
	envStarted bool
)

// InitEnvironment starts the shared ONNX Runtime environment once per process.
// libPath may be empty to use the runtime's default library lookup.
func InitEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envStarted {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	envStarted = true
	return nil
}

// Shutdown releases the ONNX Runtime environment. Every predictor must be
// closed first.
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()
	if !envStarted {
		return nil
	}
	envStarted = false
	return ort.DestroyEnvironment()
}

// ONNXPredictor wraps one session with pre-bound input and output tensors.
// The bound tensors make Run stateful, so calls are serialised.
type ONNXPredictor struct {
	mu           sync.Mutex
	desc         catalog.Descriptor
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	declared     []int64
}

// NewONNXPredictor opens the descriptor's artifact. The environment must have
// been started with InitEnvironment.
func NewONNXPredictor(desc catalog.Descriptor) (*ONNXPredictor, error) {
	declared := ExpectedInputShape(desc)
	inputs, _, err := ort.GetInputOutputInfo(desc.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info: %w", err)
	}
	for _, in := range inputs {
		if in.Name == desc.InputName {
			declared = append([]int64(nil), in.Dimensions...)
			break
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(ExpectedInputShape(desc)...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(desc.ClassCount())))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(desc.ArtifactPath,
		[]string{desc.InputName}, []string{desc.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXPredictor{
		desc:         desc,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		declared:     declared,
	}, nil
}

func (p *ONNXPredictor) Predict(ctx context.Context, img image.Image) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	input, err := Flatten(img, p.desc.InputSize, p.desc.Layout)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, fmt.Errorf("model %s is closed", p.desc.ID)
	}

	copy(p.inputTensor.GetData(), input)
	if err := p.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := p.outputTensor.GetData()
	scores := make([]float32, len(out))
	copy(scores, out)
	return scores, nil
}

func (p *ONNXPredictor) InputShape() []int64 {
	return append([]int64(nil), p.declared...)
}

func (p *ONNXPredictor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.session != nil {
		firstErr = p.session.Destroy()
		p.session = nil
	}
	if p.inputTensor != nil {
		if err := p.inputTensor.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.inputTensor = nil
	}
	if p.outputTensor != nil {
		if err := p.outputTensor.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.outputTensor = nil
	}
	return firstErr
}

// ONNXLoader opens descriptors as ONNX Runtime sessions.
type ONNXLoader struct {
	LibraryPath string
}

func (l ONNXLoader) Load(ctx context.Context, desc catalog.Descriptor) (Predictor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := InitEnvironment(l.LibraryPath); err != nil {
		return nil, err
	}
	return NewONNXPredictor(desc)
}
