package checkpoints

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/pranath-reddy/lens-sr/layers"
)

// ONNX wire schema subset used by the exporter and importer. Field
// numbers follow the onnx.proto3 definition.
const (
	// ModelProto
	fieldModelIRVersion       = 1
	fieldModelProducerName    = 2
	fieldModelProducerVersion = 3
	fieldModelVersion         = 5
	fieldModelGraph           = 7
	fieldModelOpsetImport     = 8

	// OperatorSetIdProto
	fieldOpsetDomain  = 1
	fieldOpsetVersion = 2

	// GraphProto
	fieldGraphNode        = 1
	fieldGraphName        = 2
	fieldGraphInitializer = 5
	fieldGraphInput       = 11
	fieldGraphOutput      = 12

	// NodeProto
	fieldNodeInput     = 1
	fieldNodeOutput    = 2
	fieldNodeName      = 3
	fieldNodeOpType    = 4
	fieldNodeAttribute = 5

	// AttributeProto
	fieldAttrName   = 1
	fieldAttrFloat  = 2
	fieldAttrInt    = 3
	fieldAttrString = 4
	fieldAttrInts   = 8
	fieldAttrType   = 20

	// TensorProto
	fieldTensorDims      = 1
	fieldTensorDataType  = 2
	fieldTensorInt64Data = 7
	fieldTensorName      = 8
	fieldTensorRawData   = 9

	// ValueInfoProto / TypeProto / TensorShapeProto
	fieldValueInfoName   = 1
	fieldValueInfoType   = 2
	fieldTypeTensorType  = 1
	fieldTensorTypeElem  = 1
	fieldTensorTypeShape = 2
	fieldShapeDim        = 1
	fieldDimValue        = 1
)

// AttributeProto.AttributeType values
const (
	attrTypeFloat  = 1
	attrTypeInt    = 2
	attrTypeString = 3
	attrTypeInts   = 7
)

// TensorProto.DataType values
const (
	tensorTypeFloat = 1
	tensorTypeInt64 = 7
)

const (
	onnxIRVersion    = 8
	onnxOpsetVersion = 13
)

// ONNXExporter writes a checkpoint as an ONNX model
type ONNXExporter struct{}

// NewONNXExporter creates a new ONNX exporter
func NewONNXExporter() *ONNXExporter {
	return &ONNXExporter{}
}

// ExportToONNX writes the checkpoint model as a Conv/Relu/Resize graph
// with weight initializers.
func (e *ONNXExporter) ExportToONNX(checkpoint *Checkpoint, path string) error {
	if checkpoint.ModelSpec == nil {
		return fmt.Errorf("checkpoint has no model spec")
	}

	graph, err := e.buildGraph(checkpoint)
	if err != nil {
		return err
	}

	var model []byte
	model = protowire.AppendTag(model, fieldModelIRVersion, protowire.VarintType)
	model = protowire.AppendVarint(model, onnxIRVersion)
	model = protowire.AppendTag(model, fieldModelProducerName, protowire.BytesType)
	model = protowire.AppendString(model, "lens-sr")
	model = protowire.AppendTag(model, fieldModelProducerVersion, protowire.BytesType)
	model = protowire.AppendString(model, "1.0.0")
	model = protowire.AppendTag(model, fieldModelVersion, protowire.VarintType)
	model = protowire.AppendVarint(model, 1)
	model = protowire.AppendTag(model, fieldModelGraph, protowire.BytesType)
	model = protowire.AppendBytes(model, graph)

	var opset []byte
	opset = protowire.AppendTag(opset, fieldOpsetDomain, protowire.BytesType)
	opset = protowire.AppendString(opset, "")
	opset = protowire.AppendTag(opset, fieldOpsetVersion, protowire.VarintType)
	opset = protowire.AppendVarint(opset, onnxOpsetVersion)
	model = protowire.AppendTag(model, fieldModelOpsetImport, protowire.BytesType)
	model = protowire.AppendBytes(model, opset)

	if err := os.WriteFile(path, model, 0o644); err != nil {
		return fmt.Errorf("failed to write ONNX file: %v", err)
	}
	return nil
}

func (e *ONNXExporter) buildGraph(checkpoint *Checkpoint) ([]byte, error) {
	spec := checkpoint.ModelSpec

	weightsByName := make(map[string]WeightTensor, len(checkpoint.Weights))
	for _, w := range checkpoint.Weights {
		weightsByName[w.Name] = w
	}

	var graph []byte

	current := "input"
	var nodes [][]byte
	var initializers [][]byte

	for i, layer := range spec.Layers {
		output := layer.Name + "_out"
		if i == len(spec.Layers)-1 {
			output = "output"
		}

		switch layer.Type {
		case layers.Conv2D:
			weightName := layer.Name + ".weight"
			weight, ok := weightsByName[weightName]
			if !ok {
				return nil, fmt.Errorf("missing weight tensor %s", weightName)
			}
			initializers = append(initializers, encodeFloatTensor(weightName, weight.Shape, weight.Data))

			inputs := []string{current, weightName}
			useBias, _ := layer.BoolParam("use_bias")
			if useBias {
				biasName := layer.Name + ".bias"
				bias, ok := weightsByName[biasName]
				if !ok {
					return nil, fmt.Errorf("missing bias tensor %s", biasName)
				}
				initializers = append(initializers, encodeFloatTensor(biasName, bias.Shape, bias.Data))
				inputs = append(inputs, biasName)
			}

			kernel, _ := layer.IntParam("kernel_size")
			stride, _ := layer.IntParam("stride")
			pad, _ := layer.IntParam("padding")
			k64, s64, p64 := int64(kernel), int64(stride), int64(pad)

			node := encodeNode(layer.Name, "Conv", inputs, []string{output},
				encodeIntsAttr("kernel_shape", []int64{k64, k64}),
				encodeIntsAttr("strides", []int64{s64, s64}),
				encodeIntsAttr("pads", []int64{p64, p64, p64, p64}),
			)
			nodes = append(nodes, node)

		case layers.ReLU:
			nodes = append(nodes, encodeNode(layer.Name, "Relu", []string{current}, []string{output}))

		case layers.Upsample2D:
			outH, _ := layer.IntParam("out_height")
			outW, _ := layer.IntParam("out_width")
			if len(layer.InputShape) != 4 {
				return nil, fmt.Errorf("layer %s has no resolved input shape", layer.Name)
			}

			sizesName := layer.Name + ".sizes"
			sizes := []int64{
				int64(layer.InputShape[0]), int64(layer.InputShape[1]),
				int64(outH), int64(outW),
			}
			initializers = append(initializers, encodeInt64Tensor(sizesName, sizes))

			// Empty roi and scales inputs select the sizes form
			node := encodeNode(layer.Name, "Resize",
				[]string{current, "", "", sizesName}, []string{output},
				encodeStringAttr("mode", "cubic"),
				encodeStringAttr("coordinate_transformation_mode", "half_pixel"),
				encodeFloatAttr("cubic_coeff_a", -0.75),
			)
			nodes = append(nodes, node)

		default:
			return nil, fmt.Errorf("unsupported layer type for ONNX export: %s", layer.Type.String())
		}

		current = output
	}

	for _, n := range nodes {
		graph = protowire.AppendTag(graph, fieldGraphNode, protowire.BytesType)
		graph = protowire.AppendBytes(graph, n)
	}

	graph = protowire.AppendTag(graph, fieldGraphName, protowire.BytesType)
	graph = protowire.AppendString(graph, "lens_sr")

	for _, init := range initializers {
		graph = protowire.AppendTag(graph, fieldGraphInitializer, protowire.BytesType)
		graph = protowire.AppendBytes(graph, init)
	}

	graph = protowire.AppendTag(graph, fieldGraphInput, protowire.BytesType)
	graph = protowire.AppendBytes(graph, encodeValueInfo("input", spec.InputShape))
	graph = protowire.AppendTag(graph, fieldGraphOutput, protowire.BytesType)
	graph = protowire.AppendBytes(graph, encodeValueInfo("output", spec.OutputShape))

	return graph, nil
}

func encodeNode(name, opType string, inputs, outputs []string, attrs ...[]byte) []byte {
	var b []byte
	for _, in := range inputs {
		b = protowire.AppendTag(b, fieldNodeInput, protowire.BytesType)
		b = protowire.AppendString(b, in)
	}
	for _, out := range outputs {
		b = protowire.AppendTag(b, fieldNodeOutput, protowire.BytesType)
		b = protowire.AppendString(b, out)
	}
	b = protowire.AppendTag(b, fieldNodeName, protowire.BytesType)
	b = protowire.AppendString(b, name)
	b = protowire.AppendTag(b, fieldNodeOpType, protowire.BytesType)
	b = protowire.AppendString(b, opType)
	for _, a := range attrs {
		b = protowire.AppendTag(b, fieldNodeAttribute, protowire.BytesType)
		b = protowire.AppendBytes(b, a)
	}
	return b
}

func encodeIntsAttr(name string, values []int64) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldAttrName, protowire.BytesType)
	b = protowire.AppendString(b, name)
	for _, v := range values {
		b = protowire.AppendTag(b, fieldAttrInts, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v))
	}
	b = protowire.AppendTag(b, fieldAttrType, protowire.VarintType)
	b = protowire.AppendVarint(b, attrTypeInts)
	return b
}

func encodeStringAttr(name, value string) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldAttrName, protowire.BytesType)
	b = protowire.AppendString(b, name)
	b = protowire.AppendTag(b, fieldAttrString, protowire.BytesType)
	b = protowire.AppendString(b, value)
	b = protowire.AppendTag(b, fieldAttrType, protowire.VarintType)
	b = protowire.AppendVarint(b, attrTypeString)
	return b
}

func encodeFloatAttr(name string, value float32) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldAttrName, protowire.BytesType)
	b = protowire.AppendString(b, name)
	b = protowire.AppendTag(b, fieldAttrFloat, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(value))
	b = protowire.AppendTag(b, fieldAttrType, protowire.VarintType)
	b = protowire.AppendVarint(b, attrTypeFloat)
	return b
}

func encodeFloatTensor(name string, shape []int, data []float32) []byte {
	var b []byte
	for _, d := range shape {
		b = protowire.AppendTag(b, fieldTensorDims, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d))
	}
	b = protowire.AppendTag(b, fieldTensorDataType, protowire.VarintType)
	b = protowire.AppendVarint(b, tensorTypeFloat)
	b = protowire.AppendTag(b, fieldTensorName, protowire.BytesType)
	b = protowire.AppendString(b, name)

	raw := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	b = protowire.AppendTag(b, fieldTensorRawData, protowire.BytesType)
	b = protowire.AppendBytes(b, raw)
	return b
}

func encodeInt64Tensor(name string, values []int64) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldTensorDims, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(len(values)))
	b = protowire.AppendTag(b, fieldTensorDataType, protowire.VarintType)
	b = protowire.AppendVarint(b, tensorTypeInt64)
	b = protowire.AppendTag(b, fieldTensorName, protowire.BytesType)
	b = protowire.AppendString(b, name)
	for _, v := range values {
		b = protowire.AppendTag(b, fieldTensorInt64Data, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v))
	}
	return b
}

func encodeValueInfo(name string, shape []int) []byte {
	var dims []byte
	for _, d := range shape {
		var dim []byte
		dim = protowire.AppendTag(dim, fieldDimValue, protowire.VarintType)
		dim = protowire.AppendVarint(dim, uint64(d))
		dims = protowire.AppendTag(dims, fieldShapeDim, protowire.BytesType)
		dims = protowire.AppendBytes(dims, dim)
	}

	var tensorType []byte
	tensorType = protowire.AppendTag(tensorType, fieldTensorTypeElem, protowire.VarintType)
	tensorType = protowire.AppendVarint(tensorType, tensorTypeFloat)
	tensorType = protowire.AppendTag(tensorType, fieldTensorTypeShape, protowire.BytesType)
	tensorType = protowire.AppendBytes(tensorType, dims)

	var typ []byte
	typ = protowire.AppendTag(typ, fieldTypeTensorType, protowire.BytesType)
	typ = protowire.AppendBytes(typ, tensorType)

	var b []byte
	b = protowire.AppendTag(b, fieldValueInfoName, protowire.BytesType)
	b = protowire.AppendString(b, name)
	b = protowire.AppendTag(b, fieldValueInfoType, protowire.BytesType)
	b = protowire.AppendBytes(b, typ)
	return b
}

// ONNXImporter reads back models written by the exporter
type ONNXImporter struct{}

// NewONNXImporter creates a new ONNX importer
func NewONNXImporter() *ONNXImporter {
	return &ONNXImporter{}
}

type onnxTensor struct {
	name     string
	dims     []int
	dataType int
	floats   []float32
	ints     []int64
}

type onnxAttr struct {
	name string
	f    float32
	s    string
	ints []int64
}

type onnxNode struct {
	name    string
	opType  string
	inputs  []string
	outputs []string
	attrs   map[string]onnxAttr
}

type onnxGraph struct {
	nodes        []onnxNode
	initializers map[string]onnxTensor
	inputShape   []int
}

// ImportFromONNX reconstructs a checkpoint from an exported ONNX file
func (im *ONNXImporter) ImportFromONNX(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ONNX file: %v", err)
	}

	graph, err := parseModel(data)
	if err != nil {
		return nil, err
	}
	return im.reconstruct(graph)
}

func (im *ONNXImporter) reconstruct(graph *onnxGraph) (*Checkpoint, error) {
	if len(graph.inputShape) != 4 {
		return nil, fmt.Errorf("expected 4D graph input, got %v", graph.inputShape)
	}

	builder := layers.NewModelBuilder(graph.inputShape)
	var weights []WeightTensor

	for _, node := range graph.nodes {
		switch node.opType {
		case "Conv":
			if len(node.inputs) < 2 {
				return nil, fmt.Errorf("conv node %s has no weight input", node.name)
			}
			weight, ok := graph.initializers[node.inputs[1]]
			if !ok {
				return nil, fmt.Errorf("missing initializer %s", node.inputs[1])
			}
			if len(weight.dims) != 4 {
				return nil, fmt.Errorf("conv weight %s has %d dims", weight.name, len(weight.dims))
			}

			kernel := weight.dims[2]
			stride, pad := 1, 0
			if a, ok := node.attrs["strides"]; ok && len(a.ints) > 0 {
				stride = int(a.ints[0])
			}
			if a, ok := node.attrs["pads"]; ok && len(a.ints) > 0 {
				pad = int(a.ints[0])
			}

			useBias := len(node.inputs) >= 3 && node.inputs[2] != ""
			builder.AddConv2D(weight.dims[0], kernel, stride, pad, useBias, node.name)

			weights = append(weights, WeightTensor{
				Name:  weight.name,
				Shape: weight.dims,
				Data:  weight.floats,
				Layer: node.name,
				Type:  "weight",
			})
			if useBias {
				bias, ok := graph.initializers[node.inputs[2]]
				if !ok {
					return nil, fmt.Errorf("missing initializer %s", node.inputs[2])
				}
				weights = append(weights, WeightTensor{
					Name:  bias.name,
					Shape: bias.dims,
					Data:  bias.floats,
					Layer: node.name,
					Type:  "bias",
				})
			}

		case "Relu":
			builder.AddReLU(node.name)

		case "Resize":
			if len(node.inputs) < 4 {
				return nil, fmt.Errorf("resize node %s has no sizes input", node.name)
			}
			sizes, ok := graph.initializers[node.inputs[3]]
			if !ok {
				return nil, fmt.Errorf("missing initializer %s", node.inputs[3])
			}
			if len(sizes.ints) != 4 {
				return nil, fmt.Errorf("resize sizes %s has %d values", sizes.name, len(sizes.ints))
			}
			builder.AddUpsample2D(int(sizes.ints[2]), int(sizes.ints[3]), node.name)

		default:
			return nil, fmt.Errorf("unsupported ONNX op: %s", node.opType)
		}
	}

	spec, err := builder.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile imported model: %v", err)
	}

	return &Checkpoint{ModelSpec: spec, Weights: weights}, nil
}

func parseModel(data []byte) (*onnxGraph, error) {
	var graph *onnxGraph
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed ONNX model")
		}
		data = data[n:]

		if num == fieldModelGraph && typ == protowire.BytesType {
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("malformed graph field")
			}
			g, err := parseGraph(body)
			if err != nil {
				return nil, err
			}
			graph = g
			data = data[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return nil, fmt.Errorf("malformed ONNX field %d", num)
		}
		data = data[n:]
	}
	if graph == nil {
		return nil, fmt.Errorf("ONNX model has no graph")
	}
	return graph, nil
}

func parseGraph(data []byte) (*onnxGraph, error) {
	graph := &onnxGraph{initializers: make(map[string]onnxTensor)}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed graph")
		}
		data = data[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("malformed graph field %d", num)
			}
			data = data[n:]
			continue
		}

		body, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed graph field %d", num)
		}
		data = data[n:]

		switch num {
		case fieldGraphNode:
			node, err := parseNode(body)
			if err != nil {
				return nil, err
			}
			graph.nodes = append(graph.nodes, node)
		case fieldGraphInitializer:
			t, err := parseTensor(body)
			if err != nil {
				return nil, err
			}
			graph.initializers[t.name] = t
		case fieldGraphInput:
			shape, err := parseValueInfoShape(body)
			if err != nil {
				return nil, err
			}
			graph.inputShape = shape
		}
	}
	return graph, nil
}

func parseNode(data []byte) (onnxNode, error) {
	node := onnxNode{attrs: make(map[string]onnxAttr)}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return node, fmt.Errorf("malformed node")
		}
		data = data[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return node, fmt.Errorf("malformed node field %d", num)
			}
			data = data[n:]
			continue
		}

		body, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return node, fmt.Errorf("malformed node field %d", num)
		}
		data = data[n:]

		switch num {
		case fieldNodeInput:
			node.inputs = append(node.inputs, string(body))
		case fieldNodeOutput:
			node.outputs = append(node.outputs, string(body))
		case fieldNodeName:
			node.name = string(body)
		case fieldNodeOpType:
			node.opType = string(body)
		case fieldNodeAttribute:
			attr, err := parseAttribute(body)
			if err != nil {
				return node, err
			}
			node.attrs[attr.name] = attr
		}
	}
	return node, nil
}

func parseAttribute(data []byte) (onnxAttr, error) {
	var attr onnxAttr

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return attr, fmt.Errorf("malformed attribute")
		}
		data = data[n:]

		switch {
		case num == fieldAttrName && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return attr, fmt.Errorf("malformed attribute name")
			}
			attr.name = string(v)
			data = data[n:]
		case num == fieldAttrFloat && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return attr, fmt.Errorf("malformed attribute float")
			}
			attr.f = math.Float32frombits(v)
			data = data[n:]
		case num == fieldAttrString && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return attr, fmt.Errorf("malformed attribute string")
			}
			attr.s = string(v)
			data = data[n:]
		case num == fieldAttrInts && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return attr, fmt.Errorf("malformed attribute int")
			}
			attr.ints = append(attr.ints, int64(v))
			data = data[n:]
		case num == fieldAttrInts && typ == protowire.BytesType:
			// Packed encoding
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return attr, fmt.Errorf("malformed packed ints")
			}
			data = data[n:]
			for len(body) > 0 {
				v, m := protowire.ConsumeVarint(body)
				if m < 0 {
					return attr, fmt.Errorf("malformed packed int")
				}
				attr.ints = append(attr.ints, int64(v))
				body = body[m:]
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return attr, fmt.Errorf("malformed attribute field %d", num)
			}
			data = data[n:]
		}
	}
	return attr, nil
}

func parseTensor(data []byte) (onnxTensor, error) {
	var t onnxTensor

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return t, fmt.Errorf("malformed tensor")
		}
		data = data[n:]

		switch {
		case num == fieldTensorDims && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return t, fmt.Errorf("malformed tensor dim")
			}
			t.dims = append(t.dims, int(v))
			data = data[n:]
		case num == fieldTensorDims && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return t, fmt.Errorf("malformed packed dims")
			}
			data = data[n:]
			for len(body) > 0 {
				v, m := protowire.ConsumeVarint(body)
				if m < 0 {
					return t, fmt.Errorf("malformed packed dim")
				}
				t.dims = append(t.dims, int(v))
				body = body[m:]
			}
		case num == fieldTensorDataType && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return t, fmt.Errorf("malformed tensor data type")
			}
			t.dataType = int(v)
			data = data[n:]
		case num == fieldTensorName && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return t, fmt.Errorf("malformed tensor name")
			}
			t.name = string(v)
			data = data[n:]
		case num == fieldTensorInt64Data && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return t, fmt.Errorf("malformed int64 data")
			}
			t.ints = append(t.ints, int64(v))
			data = data[n:]
		case num == fieldTensorInt64Data && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return t, fmt.Errorf("malformed packed int64 data")
			}
			data = data[n:]
			for len(body) > 0 {
				v, m := protowire.ConsumeVarint(body)
				if m < 0 {
					return t, fmt.Errorf("malformed packed int64")
				}
				t.ints = append(t.ints, int64(v))
				body = body[m:]
			}
		case num == fieldTensorRawData && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return t, fmt.Errorf("malformed raw data")
			}
			data = data[n:]
			if len(raw)%4 != 0 {
				return t, fmt.Errorf("raw data length %d not float32-aligned", len(raw))
			}
			t.floats = make([]float32, len(raw)/4)
			for i := range t.floats {
				t.floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return t, fmt.Errorf("malformed tensor field %d", num)
			}
			data = data[n:]
		}
	}
	return t, nil
}

// parseValueInfoShape digs the dimension values out of a ValueInfoProto
func parseValueInfoShape(data []byte) ([]int, error) {
	typeBody, err := subMessage(data, fieldValueInfoType)
	if err != nil {
		return nil, err
	}
	tensorType, err := subMessage(typeBody, fieldTypeTensorType)
	if err != nil {
		return nil, err
	}
	shapeBody, err := subMessage(tensorType, fieldTensorTypeShape)
	if err != nil {
		return nil, err
	}

	var shape []int
	for len(shapeBody) > 0 {
		num, typ, n := protowire.ConsumeTag(shapeBody)
		if n < 0 {
			return nil, fmt.Errorf("malformed shape")
		}
		shapeBody = shapeBody[n:]

		if num == fieldShapeDim && typ == protowire.BytesType {
			dim, n := protowire.ConsumeBytes(shapeBody)
			if n < 0 {
				return nil, fmt.Errorf("malformed dim")
			}
			shapeBody = shapeBody[n:]

			for len(dim) > 0 {
				dnum, dtyp, m := protowire.ConsumeTag(dim)
				if m < 0 {
					return nil, fmt.Errorf("malformed dim field")
				}
				dim = dim[m:]
				if dnum == fieldDimValue && dtyp == protowire.VarintType {
					v, m := protowire.ConsumeVarint(dim)
					if m < 0 {
						return nil, fmt.Errorf("malformed dim value")
					}
					shape = append(shape, int(v))
					dim = dim[m:]
					continue
				}
				m = protowire.ConsumeFieldValue(dnum, dtyp, dim)
				if m < 0 {
					return nil, fmt.Errorf("malformed dim field %d", dnum)
				}
				dim = dim[m:]
			}
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, shapeBody)
		if n < 0 {
			return nil, fmt.Errorf("malformed shape field %d", num)
		}
		shapeBody = shapeBody[n:]
	}
	return shape, nil
}

// subMessage returns the first bytes-typed field with the given number
func subMessage(data []byte, field protowire.Number) ([]byte, error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("malformed message")
		}
		data = data[n:]

		if num == field && typ == protowire.BytesType {
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("malformed field %d", field)
			}
			return body, nil
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return nil, fmt.Errorf("malformed field %d", num)
		}
		data = data[n:]
	}
	return nil, fmt.Errorf("field %d not found", field)
}
