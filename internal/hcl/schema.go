package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes all top-level blocks a definition file may contain.
type fileRoot struct {
	Args        []*hclArg     `hcl:"arg,block"`
	Sequentials []*hclSteps   `hcl:"sequential,block"`
	Graphs      []*hclSteps   `hcl:"graph,block"`
	Scalars     []*hclBinding `hcl:"scalar,block"`
	Ndarrays    []*hclBinding `hcl:"ndarray,block"`
	Vectors     []*hclBinding `hcl:"vector,block"`
	Matrices    []*hclBinding `hcl:"matrix,block"`
}

type hclArg struct {
	Name     string `hcl:"name,label"`
	Kind     string `hcl:"kind"`
	DType    string `hcl:"dtype"`
	FieldDim *int   `hcl:"field_dim,optional"`
	// An expression so that an absent shape and `[]` stay distinguishable.
	ElementShape hcl.Expression `hcl:"element_shape,optional"`
}

// hclSteps is a `graph` or `sequential` block. Its body is decoded with
// Content so that dispatch and append blocks keep their source order.
type hclSteps struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

var stepsBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "description"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "dispatch", LabelNames: []string{"kernel"}},
		{Type: "append", LabelNames: []string{"sequential"}},
	},
}

type hclDispatch struct {
	Args []string `hcl:"args,optional"`
}

type hclAppend struct {
	Count *int `hcl:"count,optional"`
}

type hclBinding struct {
	Name         string         `hcl:"name,label"`
	DType        string         `hcl:"dtype"`
	Shape        []int          `hcl:"shape,optional"`
	ElementShape []int          `hcl:"element_shape,optional"`
	Fill         *float64       `hcl:"fill,optional"`
	Value        hcl.Expression `hcl:"value,optional"`
}
