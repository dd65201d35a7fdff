package onnx

import (
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// SessionConfig configures a model session.
type SessionConfig struct {
	ModelPath  string
	NumThreads int
	GPU        GPUConfig
}

// Session runs a model with one float32 input and one float32 output.
type Session struct {
	mu      sync.Mutex
	sess    *ort.DynamicAdvancedSession
	input   ort.InputOutputInfo
	output  ort.InputOutputInfo
	modelID string
}

// NewSession initializes the runtime if needed and loads the model.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("model path cannot be empty")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}
	if err := Init(cfg.GPU.UseGPU); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model input/output info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected 1 input and 1 output, got %d and %d", len(inputs), len(outputs))
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() { _ = opts.Destroy() }()

	if err := configureGPU(opts, cfg.GPU); err != nil {
		return nil, err
	}
	if cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	sess, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return &Session{sess: sess, input: inputs[0], output: outputs[0], modelID: cfg.ModelPath}, nil
}

// InputShape returns the declared model input dimensions; dynamic axes are
// negative.
func (s *Session) InputShape() []int64 {
	return append([]int64(nil), s.input.Dimensions...)
}

// Run executes the model on t and returns the output tensor.
func (s *Session) Run(t Tensor) (Tensor, error) {
	if err := t.Verify(); err != nil {
		return Tensor{}, fmt.Errorf("invalid input tensor: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return Tensor{}, errors.New("session is closed")
	}

	in, err := ort.NewTensor(ort.NewShape(t.Shape...), t.Data)
	if err != nil {
		return Tensor{}, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() { _ = in.Destroy() }()

	outputs := []ort.Value{nil}
	if err := s.sess.Run([]ort.Value{in}, outputs); err != nil {
		return Tensor{}, fmt.Errorf("inference failed for %s: %w", s.modelID, err)
	}
	defer func() { _ = outputs[0].Destroy() }()

	ft, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return Tensor{}, fmt.Errorf("expected float32 output, got %T", outputs[0])
	}
	return Tensor{
		Data:  append([]float32(nil), ft.GetData()...),
		Shape: append([]int64(nil), ft.GetShape()...),
	}, nil
}

// Close destroys the session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil
	}
	err := s.sess.Destroy()
	s.sess = nil
	return err
}
