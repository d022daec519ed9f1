package tensor

import "testing"

func TestNewShape(t *testing.T) {
	t1 := New(2, 3)
	if len(t1.Data) != 6 {
		t.Fatalf("expected 6 elements, got %d", len(t1.Data))
	}
	if len(t1.Shape) != 2 || t1.Shape[0] != 2 || t1.Shape[1] != 3 {
		t.Fatalf("unexpected shape: %v", t1.Shape)
	}
	if New(0, 40, 1).Len() != 0 {
		t.Fatalf("expected empty tensor")
	}
}

func TestReshapeSharesData(t *testing.T) {
	a := NewWithData([]float64{1, 2, 3, 4, 5, 6})
	b, err := a.Reshape(2, 3, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := b.At(1, 0, 0); got != 4 {
		t.Fatalf("At(1,0,0) = %f, want 4", got)
	}
	b.Set(9, 0, 2, 0)
	if a.Data[2] != 9 {
		t.Fatalf("reshape does not share data")
	}
	if _, err := a.Reshape(4, 2); err == nil {
		t.Fatalf("expected size mismatch error")
	}
}

func TestRelu(t *testing.T) {
	a := &Tensor{Data: []float64{-1, 0, 3}, Shape: []int{3}}
	c := Relu(a)
	want := []float64{0, 0, 3}
	for i := range want {
		if c.Data[i] != want[i] {
			t.Errorf("at %d, got %f, want %f", i, c.Data[i], want[i])
		}
	}
}

func TestArgMax(t *testing.T) {
	if got := NewWithData([]float64{0.1, 0.7, 0.2}).ArgMax(); got != 1 {
		t.Fatalf("ArgMax = %d, want 1", got)
	}
	if got := New(0).ArgMax(); got != -1 {
		t.Fatalf("ArgMax of empty = %d, want -1", got)
	}
}
