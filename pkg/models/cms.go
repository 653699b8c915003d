package models

// CMSConfig mirrors the admin/config.yml file kept in the blog repository.
type CMSConfig struct {
	MediaFolder  string       `yaml:"media_folder" json:"media_folder"`
	PublicFolder string       `yaml:"public_folder" json:"public_folder"`
	Collections  []Collection `yaml:"collections" json:"collections"`
}

type Collection struct {
	Name         string  `yaml:"name" json:"name"`
	Label        string  `yaml:"label" json:"label"`
	Folder       string  `yaml:"folder" json:"folder"`
	Path         string  `yaml:"path" json:"path"`
	Extension    string  `yaml:"extension" json:"extension"`
	Format       string  `yaml:"format" json:"format"`
	MediaFolder  string  `yaml:"media_folder" json:"media_folder,omitempty"`
	PublicFolder string  `yaml:"public_folder" json:"public_folder,omitempty"`
	Fields       []Field `yaml:"fields" json:"fields"`
}

type Field struct {
	Name    string `yaml:"name" json:"name"`
	Widget  string `yaml:"widget" json:"widget"`
	Default any    `yaml:"default,omitempty" json:"default,omitempty"`
}

// Collection returns the collection with the given name, or nil.
func (c *CMSConfig) Collection(name string) *Collection {
	if c == nil {
		return nil
	}
	for i := range c.Collections {
		if c.Collections[i].Name == name {
			return &c.Collections[i]
		}
	}
	return nil
}
