package plain

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"kws_lib/nn"
	"kws_lib/nn/layers"
	"kws_lib/nn/models"
	"kws_lib/tensor"
	"kws_lib/utils"
)

func settings(t *testing.T, clipMs int) nn.ModelSettings {
	t.Helper()
	ms, err := nn.PrepareModelSettings(nn.AudioSettings{
		LabelCount:          4,
		SampleRate:          16000,
		ClipDurationMs:      clipMs,
		WindowSizeMs:        30,
		WindowStrideMs:      20,
		DCTCoefficientCount: 40,
	})
	require.NoError(t, err)
	return ms
}

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(float64(i) * 0.1)
	}
	return out
}

func fill(shape []int, v float64) *tensor.Tensor {
	t := tensor.New(shape...)
	for i := range t.Data {
		t.Data[i] = v
	}
	return t
}

func TestWindow(t *testing.T) {
	cases := []struct {
		in, k, s       int
		p              layers.Padding
		out, padBefore int
	}{
		{49, 10, 2, layers.PaddingSame, 25, 4},
		{4, 3, 2, layers.PaddingSame, 2, 0},
		{5, 3, 1, layers.PaddingSame, 5, 1},
		{3, 8, 1, layers.PaddingSame, 3, 3},
		{25, 25, 1, layers.PaddingValid, 1, 0},
		{40, 8, 1, layers.PaddingValid, 33, 0},
		{2, 3, 1, layers.PaddingValid, 0, 0},
	}
	for _, c := range cases {
		out, before := window(c.in, c.k, c.s, c.p)
		require.Equal(t, c.out, out, "%+v", c)
		require.Equal(t, c.padBefore, before, "%+v", c)
	}
}

func TestConv2DSamePadding(t *testing.T) {
	x := tensor.New(3, 3, 1)
	for i := range x.Data {
		x.Data[i] = 1
	}
	l := layers.NewConv2D(1, 3, 3, 1, 1)
	out, err := conv2D(x, l, fill([]int{3, 3, 1, 1}, 1), fill([]int{1}, 0.5))
	require.NoError(t, err)
	require.Equal(t, []int{3, 3, 1}, out.Shape)
	require.Equal(t, []float64{4.5, 6.5, 4.5, 6.5, 9.5, 6.5, 4.5, 6.5, 4.5}, out.Data)
}

func TestConv2DStridedPadsAfter(t *testing.T) {
	x := tensor.NewWithData([]float64{1, 2, 3, 4})
	x, err := x.Reshape(1, 4, 1)
	require.NoError(t, err)
	l := layers.NewConv2D(1, 1, 3, 1, 2)
	out, err := conv2D(x, l, fill([]int{1, 3, 1, 1}, 1), fill([]int{1}, 0))
	require.NoError(t, err)
	require.Equal(t, []float64{6, 7}, out.Data)
}

func TestConv2DValidRelu(t *testing.T) {
	x, _ := tensor.NewWithData([]float64{1, -2, 3, -4}).Reshape(1, 4, 1)
	l := layers.Conv2D{Filters: 2, KernelT: 1, KernelF: 2, StrideT: 1, StrideF: 1, Padding: layers.PaddingValid, Activation: layers.ReLU}
	// filter 0 sums the window, filter 1 negates it.
	kernel := tensor.NewWithData([]float64{1, -1, 1, -1})
	kernel, _ = kernel.Reshape(1, 2, 1, 2)
	out, err := conv2D(x, l, kernel, tensor.New(2))
	require.NoError(t, err)
	require.Equal(t, []int{1, 3, 2}, out.Shape)
	require.Equal(t, []float64{0, 1, 1, 0, 0, 1}, out.Data)
}

func TestDepthwiseConv2D(t *testing.T) {
	// two channels, multiplier two: channel c scaled by (c*2+m+1).
	x, _ := tensor.NewWithData([]float64{1, 10, 2, 20}).Reshape(1, 2, 2)
	l := layers.DepthwiseConv2D{Multiplier: 2, KernelT: 1, KernelF: 1, StrideT: 1, StrideF: 1, Padding: layers.PaddingSame}
	kernel, _ := tensor.NewWithData([]float64{1, 2, 3, 4}).Reshape(1, 1, 2, 2)
	out, err := depthwiseConv2D(x, l, kernel, tensor.NewWithData([]float64{0, 0, 0, 1}))
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 4}, out.Shape)
	require.Equal(t, []float64{1, 2, 30, 41, 2, 4, 60, 81}, out.Data)
}

func TestPointwiseConv2D(t *testing.T) {
	x, _ := tensor.NewWithData([]float64{1, 2, 3, 4}).Reshape(2, 1, 2)
	kernel, _ := tensor.NewWithData([]float64{1, 0, 1, 1, 1, -1}).Reshape(1, 1, 2, 3)
	out, err := pointwiseConv2D(x, layers.NewPointwiseConv2D(3), kernel, tensor.NewWithData([]float64{0, 0, 1}))
	require.NoError(t, err)
	require.Equal(t, []float64{3, 2, 0, 7, 4, 0}, out.Data)
}

func TestBatchNorm(t *testing.T) {
	x, _ := tensor.NewWithData([]float64{1, 2, 3, 4}).Reshape(2, 1, 2)
	l := layers.BatchNorm{Epsilon: 0}
	out := batchNorm(x, l,
		tensor.NewWithData([]float64{2, 1}),
		tensor.NewWithData([]float64{0, 1}),
		tensor.NewWithData([]float64{1, 0}),
		tensor.NewWithData([]float64{4, 1}))
	require.InDeltaSlice(t, []float64{0, 3, 2, 5}, out.Data, 1e-12)
}

func TestPool2D(t *testing.T) {
	x, _ := tensor.NewWithData([]float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
	}).Reshape(2, 4, 1)

	out, err := pool2D(x, layers.NewMaxPool2D(2, 2))
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 1}, out.Shape)
	require.Equal(t, []float64{6, 8}, out.Data)

	out, err = pool2D(x, layers.NewAvgPool2D(2, 4))
	require.NoError(t, err)
	require.Equal(t, []float64{4.5}, out.Data)

	out, err = pool2D(tensor.New(0, 40, 3), layers.NewAvgPool2D(2, 2))
	require.NoError(t, err)
	require.Equal(t, []int{0, 0, 3}, out.Shape)
}

func TestDenseAndSoftmax(t *testing.T) {
	x := tensor.NewWithData([]float64{1, 2})
	kernel, _ := tensor.NewWithData([]float64{1, 0, 0, 1, 1, 1}).Reshape(2, 3)
	out := dense(x, layers.Dense{Units: 3}, kernel, tensor.NewWithData([]float64{0, 0, 1}))
	require.Equal(t, []float64{3, 2, 3}, out.Data)

	probs := dense(x, layers.NewSoftmaxDense(3), kernel, tensor.NewWithData([]float64{0, 0, 1}))
	sum := 0.0
	for _, p := range probs.Data {
		sum += p
	}
	require.InDelta(t, 1, sum, 1e-12)
	require.InDelta(t, probs.Data[0], probs.Data[2], 1e-12)
	require.Equal(t, 0, probs.ArgMax())

	// No inputs: the bias alone decides.
	empty := dense(tensor.New(0), layers.NewSoftmaxDense(2), tensor.New(0, 2), tensor.New(2))
	require.InDeltaSlice(t, []float64{0.5, 0.5}, empty.Data, 1e-12)

	require.Empty(t, Softmax(tensor.New(0)).Data)
}

func TestInstantiateDeterministic(t *testing.T) {
	topo, err := models.Build(settings(t, 1000), models.MicroSpeech, nil)
	require.NoError(t, err)

	a, err := Instantiate(topo, 7, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	b, err := Instantiate(topo, 7)
	require.NoError(t, err)
	c, err := Instantiate(topo, 8)
	require.NoError(t, err)

	require.Equal(t, a.Weights(), b.Weights())
	require.NotEqual(t, a.Weights(), c.Weights())

	// Kernels are bounded by the fan-in; the depthwise kernel is 10x8.
	limit := 1 / math.Sqrt(80)
	dw := a.units[1].param(ParamKernel)
	for _, v := range dw.Data {
		require.LessOrEqual(t, math.Abs(v), limit)
	}
	require.Equal(t, []float64{0, 0, 0, 0, 0, 0, 0, 0}, a.units[1].param(ParamBias).Data)
}

func TestForwardArchitectures(t *testing.T) {
	ms := settings(t, 1000)
	fp := ramp(ms.FingerprintSize)
	for _, arch := range models.Architectures() {
		t.Run(arch.String(), func(t *testing.T) {
			topo, err := models.Build(ms, arch, models.DefaultDSCNNSizeInfo)
			require.NoError(t, err)
			net, err := Instantiate(topo, 1)
			require.NoError(t, err)

			out, err := net.Forward(fp)
			require.NoError(t, err)
			require.Equal(t, []int{4}, out.Shape)
			sum := 0.0
			for _, p := range out.Data {
				require.GreaterOrEqual(t, p, 0.0)
				sum += p
			}
			require.InDelta(t, 1, sum, 1e-9)

			class, probs, err := net.Predict(fp)
			require.NoError(t, err)
			require.Equal(t, out.ArgMax(), class)
			require.Equal(t, out.Data, probs)
		})
	}
}

func TestForwardInputMismatch(t *testing.T) {
	topo, err := models.Build(settings(t, 1000), models.MicroSpeech, nil)
	require.NoError(t, err)
	net, err := Instantiate(topo, 1)
	require.NoError(t, err)

	_, err = net.Forward(make([]float64, 10))
	require.Error(t, err)
	require.NotErrorIs(t, err, nn.ErrInvalidConfiguration)

	class, _, err := net.Predict(nil)
	require.Error(t, err)
	require.Equal(t, -1, class)
}

func TestForwardDegenerate(t *testing.T) {
	ms := settings(t, 20)
	require.True(t, ms.Degenerate())
	for _, arch := range models.Architectures() {
		topo, err := models.Build(ms, arch, models.DefaultDSCNNSizeInfo)
		require.NoError(t, err, arch.String())
		net, err := Instantiate(topo, 1)
		require.NoError(t, err, arch.String())
		out, err := net.Forward(nil)
		require.NoError(t, err, arch.String())
		require.InDeltaSlice(t, []float64{0.25, 0.25, 0.25, 0.25}, out.Data, 1e-12, arch.String())
	}
}

func TestInstantiateNil(t *testing.T) {
	_, err := Instantiate(nil, 0)
	require.ErrorIs(t, err, nn.ErrInvalidConfiguration)
}

func TestWeightsRoundTrip(t *testing.T) {
	ms := settings(t, 1000)
	topo, err := models.Build(ms, models.Custom, nil)
	require.NoError(t, err)
	net, err := Instantiate(topo, 3)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "weights.json")
	require.NoError(t, utils.SaveWeights(path, net.Weights()))
	mw, err := utils.LoadWeights(path)
	require.NoError(t, err)

	loaded, err := LoadWeights(topo, mw)
	require.NoError(t, err)

	fp := ramp(ms.FingerprintSize)
	want, err := net.Forward(fp)
	require.NoError(t, err)
	got, err := loaded.Forward(fp)
	require.NoError(t, err)
	require.InDeltaSlice(t, want.Data, got.Data, 1e-12)
}

func TestLoadWeightsRejectsMismatch(t *testing.T) {
	ms := settings(t, 1000)
	micro, err := models.Build(ms, models.MicroSpeech, nil)
	require.NoError(t, err)
	custom, err := models.Build(ms, models.Custom, nil)
	require.NoError(t, err)

	net, err := Instantiate(micro, 1)
	require.NoError(t, err)
	mw := net.Weights()

	_, err = LoadWeights(custom, mw)
	require.Error(t, err, "architecture mismatch")

	_, err = LoadWeights(micro, nil)
	require.ErrorIs(t, err, nn.ErrInvalidConfiguration)

	delete(mw.Layers, "01_depthwise-convolution")
	_, err = LoadWeights(micro, mw)
	require.Error(t, err, "missing node")

	mw = net.Weights()
	mw.Layers["01_depthwise-convolution"].Bias.Shape = []int{2, 4}
	_, err = LoadWeights(micro, mw)
	require.Error(t, err, "shape mismatch")
}
