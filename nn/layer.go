package nn

// Layer describes one operation of a topology. Descriptors hold no weights;
// they only know their parameters, how they transform a shape and how many
// weights an instantiation of them would carry.
type Layer interface {
	Kind() Kind
	// Tag is a short human readable label such as "Conv2D".
	Tag() string
	// OutputShape infers the output for the given input shape.
	OutputShape(in Shape) (Shape, error)
	// Params counts the weights for the given input shape.
	Params(in Shape) int
}
