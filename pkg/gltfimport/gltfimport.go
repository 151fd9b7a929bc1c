// Package gltfimport turns a glTF morph-target mesh into the per-frame
// vertex arrays and topology the RAT compressor consumes.
//
// Frame 0 is the base mesh. Each morph target is a keyframe where that
// target has full weight, and StepsPerTarget frames are interpolated
// between consecutive keyframes. A mesh without targets yields a single
// frame.
package gltfimport

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/ratkit/pkg/math"
	"github.com/Faultbox/ratkit/pkg/rat"
)

// Import errors.
var (
	ErrNoMesh           = errors.New("glTF document has no meshes")
	ErrMeshIndex        = errors.New("glTF mesh index out of range")
	ErrNoPositions      = errors.New("glTF primitive has no POSITION attribute")
	ErrUnsupportedMode  = errors.New("glTF primitive is not a triangle list")
	ErrTargetMismatch   = errors.New("glTF primitives have different morph target counts")
	ErrAccessorMismatch = errors.New("glTF accessor length does not match vertex count")
)

// DefaultStepsPerTarget is used when Options.StepsPerTarget is zero.
const DefaultStepsPerTarget = 10

// Options controls Load.
type Options struct {
	Mesh           int // index into the document's meshes
	StepsPerTarget int // frames from one keyframe to the next
	Logger         *zap.Logger
}

// Result is an imported animation ready for rat.Compress.
type Result struct {
	MeshName        string
	Frames          [][]math.Vec3
	Topology        rat.Topology
	TextureFilename string // base color image of the first textured primitive
	Targets         int
}

// Load opens a .gltf or .glb file and imports one mesh.
func Load(name string, opts Options) (*Result, error) {
	doc, err := gltf.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening glTF: %w", err)
	}
	res, err := FromDocument(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", name, err)
	}
	return res, nil
}

// primitive is one decoded triangle primitive.
type primitive struct {
	positions [][3]float32
	targets   [][][3]float32
	uvs       [][2]float32
	colors    [][4]uint8
	indices   []uint32
}

// FromDocument imports one mesh of an already decoded document. All
// triangle primitives of the mesh are merged into one vertex array.
func FromDocument(doc *gltf.Document, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	steps := opts.StepsPerTarget
	if steps <= 0 {
		steps = DefaultStepsPerTarget
	}

	if len(doc.Meshes) == 0 {
		return nil, ErrNoMesh
	}
	if opts.Mesh < 0 || opts.Mesh >= len(doc.Meshes) {
		return nil, fmt.Errorf("%w: %d of %d", ErrMeshIndex, opts.Mesh, len(doc.Meshes))
	}
	mesh := doc.Meshes[opts.Mesh]

	res := &Result{MeshName: mesh.Name}
	var prims []primitive
	targetCount := -1
	for i, p := range mesh.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			return nil, fmt.Errorf("%w: primitive %d mode %v", ErrUnsupportedMode, i, p.Mode)
		}
		prim, err := readPrimitive(doc, p)
		if err != nil {
			return nil, fmt.Errorf("primitive %d: %w", i, err)
		}
		if targetCount >= 0 && len(prim.targets) != targetCount {
			return nil, fmt.Errorf("%w: primitive %d has %d, expected %d",
				ErrTargetMismatch, i, len(prim.targets), targetCount)
		}
		targetCount = len(prim.targets)
		if res.TextureFilename == "" {
			res.TextureFilename = textureFilename(doc, p)
		}
		prims = append(prims, prim)
	}
	if len(prims) == 0 {
		return nil, fmt.Errorf("%w: mesh %d has no primitives", ErrNoPositions, opts.Mesh)
	}
	res.Targets = targetCount

	base, keyframes := merge(prims, res)
	res.Frames = [][]math.Vec3{base}
	prev := base
	for _, key := range keyframes {
		for s := 1; s <= steps; s++ {
			t := float32(s) / float32(steps)
			frame := make([]math.Vec3, len(base))
			for v := range frame {
				frame[v] = prev[v].Lerp(key[v], t)
			}
			res.Frames = append(res.Frames, frame)
		}
		prev = key
	}

	log.Info("imported glTF mesh",
		zap.String("mesh", mesh.Name),
		zap.Int("primitives", len(prims)),
		zap.Int("vertices", len(base)),
		zap.Int("triangles", len(res.Topology.Indices)/3),
		zap.Int("targets", targetCount),
		zap.Int("frames", len(res.Frames)),
		zap.String("texture", res.TextureFilename))
	return res, nil
}

func readPrimitive(doc *gltf.Document, p *gltf.Primitive) (primitive, error) {
	var prim primitive
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return prim, ErrNoPositions
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return prim, fmt.Errorf("reading positions: %w", err)
	}
	prim.positions = positions
	n := len(positions)

	for t, target := range p.Targets {
		idx, ok := target[gltf.POSITION]
		if !ok {
			// A target without position displacement leaves the shape as is.
			prim.targets = append(prim.targets, make([][3]float32, n))
			continue
		}
		disp, err := modeler.ReadPosition(doc, doc.Accessors[idx], nil)
		if err != nil {
			return prim, fmt.Errorf("reading target %d: %w", t, err)
		}
		if len(disp) != n {
			return prim, fmt.Errorf("%w: target %d has %d, want %d", ErrAccessorMismatch, t, len(disp), n)
		}
		prim.targets = append(prim.targets, disp)
	}

	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		if prim.uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return prim, fmt.Errorf("reading texture coordinates: %w", err)
		}
		if len(prim.uvs) != n {
			return prim, fmt.Errorf("%w: %d uvs, want %d", ErrAccessorMismatch, len(prim.uvs), n)
		}
	}
	if idx, ok := p.Attributes[gltf.COLOR_0]; ok {
		if prim.colors, err = modeler.ReadColor(doc, doc.Accessors[idx], nil); err != nil {
			return prim, fmt.Errorf("reading colors: %w", err)
		}
		if len(prim.colors) != n {
			return prim, fmt.Errorf("%w: %d colors, want %d", ErrAccessorMismatch, len(prim.colors), n)
		}
	}

	if p.Indices != nil {
		if prim.indices, err = modeler.ReadIndices(doc, doc.Accessors[*p.Indices], nil); err != nil {
			return prim, fmt.Errorf("reading indices: %w", err)
		}
	} else {
		prim.indices = make([]uint32, n)
		for i := range prim.indices {
			prim.indices[i] = uint32(i)
		}
	}
	return prim, nil
}

// merge concatenates the primitives into one vertex array, filling the
// topology of res. It returns the base frame and one keyframe per target.
func merge(prims []primitive, res *Result) ([]math.Vec3, [][]math.Vec3) {
	var base []math.Vec3
	keyframes := make([][]math.Vec3, len(prims[0].targets))
	anyUV, anyColor := false, false
	for _, p := range prims {
		anyUV = anyUV || p.uvs != nil
		anyColor = anyColor || p.colors != nil
	}

	for _, p := range prims {
		offset := uint32(len(base))
		for _, idx := range p.indices {
			res.Topology.Indices = append(res.Topology.Indices, offset+idx)
		}
		for v, pos := range p.positions {
			b := toVec3(pos)
			base = append(base, b)
			for t := range keyframes {
				keyframes[t] = append(keyframes[t], b.Add(toVec3(p.targets[t][v])))
			}
			if anyUV {
				var uv math.Vec2
				if p.uvs != nil {
					uv = math.Vec2{X: p.uvs[v][0], Y: p.uvs[v][1]}
				}
				res.Topology.UVs = append(res.Topology.UVs, uv)
			}
			if anyColor {
				c := rat.White
				if p.colors != nil {
					rgba := p.colors[v]
					c = rat.Color{
						R: float32(rgba[0]) / 255,
						G: float32(rgba[1]) / 255,
						B: float32(rgba[2]) / 255,
						A: float32(rgba[3]) / 255,
					}
				}
				res.Topology.Colors = append(res.Topology.Colors, c)
			}
		}
	}
	return base, keyframes
}

func toVec3(v [3]float32) math.Vec3 {
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

// textureFilename returns the file name of the base color image of p's
// material, or "" when it has none or the image is embedded.
func textureFilename(doc *gltf.Document, p *gltf.Primitive) string {
	if p.Material == nil || *p.Material >= len(doc.Materials) {
		return ""
	}
	mat := doc.Materials[*p.Material]
	if mat.PBRMetallicRoughness == nil || mat.PBRMetallicRoughness.BaseColorTexture == nil {
		return ""
	}
	texIdx := mat.PBRMetallicRoughness.BaseColorTexture.Index
	if texIdx >= len(doc.Textures) || doc.Textures[texIdx].Source == nil {
		return ""
	}
	imgIdx := *doc.Textures[texIdx].Source
	if imgIdx >= len(doc.Images) {
		return ""
	}
	img := doc.Images[imgIdx]
	switch {
	case img.URI != "" && !strings.HasPrefix(img.URI, "data:"):
		return path.Base(img.URI)
	case img.Name != "":
		return img.Name
	}
	return ""
}
