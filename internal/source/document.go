package source

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the YAML form of a host document. Parents and material slots
// reference entities by name; ids are optional and generated when missing.
type Document struct {
	Scenes    []SceneDoc    `yaml:"scenes"`
	Materials []MaterialDoc `yaml:"materials"`
}

type SceneDoc struct {
	ID      ID          `yaml:"id,omitempty"`
	Name    string      `yaml:"name"`
	Objects []ObjectDoc `yaml:"objects"`
}

type ObjectDoc struct {
	ID        ID       `yaml:"id,omitempty"`
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"`
	Parent    string   `yaml:"parent,omitempty"`
	Materials []string `yaml:"materials,omitempty"` // "" = empty slot
}

type MaterialDoc struct {
	ID   ID     `yaml:"id,omitempty"`
	Name string `yaml:"name"`
}

// LoadDocument reads a YAML host document into a new Store.
func LoadDocument(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document %s: %w", path, err)
	}
	s, err := FromDocument(&doc)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", path, err)
	}
	return s, nil
}

// FromDocument builds a Store from a decoded Document.
func FromDocument(doc *Document) (*Store, error) {
	s := NewStore()
	materialsByName := make(map[string]ID, len(doc.Materials))
	for _, md := range doc.Materials {
		m, err := s.AddMaterial(md.ID, md.Name)
		if err != nil {
			return nil, err
		}
		materialsByName[md.Name] = m.ID
	}
	for _, sd := range doc.Scenes {
		sc, err := s.AddScene(sd.ID, sd.Name)
		if err != nil {
			return nil, err
		}
		// Two passes so a parent may be listed after its child. Entries are
		// resolved by position; only parent references go by name.
		ids := make([]ID, len(sd.Objects))
		byName := make(map[string][]ID, len(sd.Objects))
		for i, od := range sd.Objects {
			typ, err := ParseObjectType(od.Type)
			if err != nil {
				return nil, fmt.Errorf("scene %q object %q: %w", sd.Name, od.Name, err)
			}
			obj, err := s.AddObject(od.ID, sc.ID, od.Name, typ, "")
			if err != nil {
				return nil, fmt.Errorf("scene %q: %w", sd.Name, err)
			}
			ids[i] = obj.ID
			byName[od.Name] = append(byName[od.Name], obj.ID)
		}
		for i, od := range sd.Objects {
			id := ids[i]
			if od.Parent != "" {
				parents := byName[od.Parent]
				switch len(parents) {
				case 0:
					return nil, fmt.Errorf("scene %q object %q: parent %q: %w", sd.Name, od.Name, od.Parent, ErrNotFound)
				case 1:
				default:
					return nil, fmt.Errorf("scene %q object %q: parent %q names %d objects: %w", sd.Name, od.Name, od.Parent, len(parents), ErrAmbiguousName)
				}
				if err := s.SetParent(id, parents[0]); err != nil {
					return nil, err
				}
			}
			for _, mname := range od.Materials {
				var mid ID
				if mname != "" {
					var ok bool
					if mid, ok = materialsByName[mname]; !ok {
						return nil, fmt.Errorf("scene %q object %q: material %q: %w", sd.Name, od.Name, mname, ErrNotFound)
					}
				}
				if err := s.AssignMaterial(id, mid); err != nil {
					return nil, err
				}
			}
		}
	}
	return s, nil
}

// Document encodes the Store back into its YAML form, ids included.
func (s *Store) Document() *Document {
	doc := &Document{}
	for _, m := range s.Materials() {
		doc.Materials = append(doc.Materials, MaterialDoc{ID: m.ID, Name: m.Name})
	}
	for _, sc := range s.Scenes() {
		sd := SceneDoc{ID: sc.ID, Name: sc.Name}
		for _, obj := range s.Objects(sc.ID) {
			od := ObjectDoc{ID: obj.ID, Name: obj.Name, Type: string(obj.Type)}
			if p, ok := s.Object(obj.Parent); ok {
				od.Parent = p.Name
			}
			for _, mid := range obj.Materials {
				m, ok := s.Material(mid)
				if !ok {
					// Dangling slots are written back as empty slots.
					od.Materials = append(od.Materials, "")
					continue
				}
				od.Materials = append(od.Materials, m.Name)
			}
			sd.Objects = append(sd.Objects, od)
		}
		doc.Scenes = append(doc.Scenes, sd)
	}
	return doc
}

// SaveDocument writes the Store to path as YAML.
func (s *Store) SaveDocument(path string) error {
	data, err := yaml.Marshal(s.Document())
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write document %s: %w", path, err)
	}
	return nil
}
