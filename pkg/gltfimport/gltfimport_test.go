package gltfimport

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/ratkit/pkg/math"
	"github.com/Faultbox/ratkit/pkg/rat"
)

// quadDocument builds a two-triangle quad with one morph target that lifts
// vertex 2 by 1 on Y, and a base color texture.
func quadDocument() *gltf.Document {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{
		{0, 0}, {1, 0}, {1, 1}, {0, 1},
	})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2, 0, 2, 3})
	lift := modeler.WritePosition(doc, [][3]float32{
		{0, 0, 0}, {0, 0, 0}, {0, 1, 0}, {0, 0, 0},
	})

	prim := &gltf.Primitive{
		Indices:    gltf.Index(idx),
		Attributes: map[string]int{gltf.POSITION: pos, gltf.TEXCOORD_0: uv},
		Material:   gltf.Index(0),
	}
	prim.Targets = append(prim.Targets, map[string]int{gltf.POSITION: lift})

	doc.Images = append(doc.Images, &gltf.Image{URI: "textures/quad_diffuse.png"})
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(0)})
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name: "quad",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		},
	})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: "quad", Primitives: []*gltf.Primitive{prim}})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "quad", Mesh: gltf.Index(0)})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	return doc
}

func TestFromDocument_MorphFrames(t *testing.T) {
	res, err := FromDocument(quadDocument(), Options{StepsPerTarget: 4})
	require.NoError(t, err)

	assert.Equal(t, "quad", res.MeshName)
	assert.Equal(t, 1, res.Targets)
	assert.Equal(t, "quad_diffuse.png", res.TextureFilename)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, res.Topology.Indices)
	assert.Equal(t, math.Vec2{X: 1, Y: 1}, res.Topology.UVs[2])
	assert.Empty(t, res.Topology.Colors)

	// Base plus four interpolated steps towards the target.
	require.Len(t, res.Frames, 5)
	for f, frame := range res.Frames {
		require.Len(t, frame, 4)
		assert.InDelta(t, 1+float32(f)/4, frame[2].Y, 1e-6, "frame %d", f)
		assert.Equal(t, math.Vec3{X: 1, Y: 0, Z: 0}, frame[1], "frame %d", f)
	}
}

func TestFromDocument_DefaultSteps(t *testing.T) {
	res, err := FromDocument(quadDocument(), Options{})
	require.NoError(t, err)
	assert.Len(t, res.Frames, 1+DefaultStepsPerTarget)
}

func TestFromDocument_MergesPrimitives(t *testing.T) {
	doc := quadDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{5, 5, 5}, {6, 5, 5}, {5, 6, 5}})
	col := modeler.WriteColor(doc, [][4]uint8{{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255}})
	still := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}})
	tri := &gltf.Primitive{Attributes: map[string]int{gltf.POSITION: pos, gltf.COLOR_0: col}}
	tri.Targets = append(tri.Targets, map[string]int{gltf.POSITION: still})
	doc.Meshes[0].Primitives = append(doc.Meshes[0].Primitives, tri)

	res, err := FromDocument(doc, Options{StepsPerTarget: 1})
	require.NoError(t, err)

	require.Len(t, res.Frames[0], 7)
	// The second primitive has no indices, so its vertices are used in order.
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3, 4, 5, 6}, res.Topology.Indices)
	require.Len(t, res.Topology.UVs, 7)
	assert.Equal(t, math.Vec2{}, res.Topology.UVs[4])
	require.Len(t, res.Topology.Colors, 7)
	assert.Equal(t, rat.White, res.Topology.Colors[0])
	assert.Equal(t, rat.Color{R: 1, G: 0, B: 0, A: 1}, res.Topology.Colors[4])
}

func TestFromDocument_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     func() *gltf.Document
		opts    Options
		wantErr error
	}{
		{"no meshes", gltf.NewDocument, Options{}, ErrNoMesh},
		{"mesh index", quadDocument, Options{Mesh: 3}, ErrMeshIndex},
		{"lines", func() *gltf.Document {
			doc := quadDocument()
			doc.Meshes[0].Primitives[0].Mode = gltf.PrimitiveLines
			return doc
		}, Options{}, ErrUnsupportedMode},
		{"no positions", func() *gltf.Document {
			doc := quadDocument()
			delete(doc.Meshes[0].Primitives[0].Attributes, gltf.POSITION)
			return doc
		}, Options{}, ErrNoPositions},
		{"target count", func() *gltf.Document {
			doc := quadDocument()
			pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
			doc.Meshes[0].Primitives = append(doc.Meshes[0].Primitives,
				&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: pos}})
			return doc
		}, Options{}, ErrTargetMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDocument(tt.doc(), tt.opts)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestLoad_GLBIntoCompressor(t *testing.T) {
	name := filepath.Join(t.TempDir(), "quad.glb")
	require.NoError(t, gltf.SaveBinary(quadDocument(), name))

	res, err := Load(name, Options{StepsPerTarget: 3})
	require.NoError(t, err)
	require.Len(t, res.Frames, 4)

	a, err := rat.Compress(res.Frames, res.Topology, rat.CompressOptions{TextureFilename: res.TextureFilename})
	require.NoError(t, err)
	assert.Equal(t, rat.V2, a.Version())
	assert.Equal(t, uint32(4), a.VertexCount)
	assert.Equal(t, uint32(4), a.FrameCount)

	last, err := rat.DecodeFrame(a, 3)
	require.NoError(t, err)
	assert.InDelta(t, 2, last[2].Y, 1e-5)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.glb"), Options{})
	assert.Error(t, err)
}
