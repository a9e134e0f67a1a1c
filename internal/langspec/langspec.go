// Package langspec holds the per-language hierarchy rules used by the
// chunker: which syntax node types open a semantic scope, how a scope's name
// is recovered, how its label is rendered, and which node types are comments.
//
// The table is fixed at build time. Adding a language means adding an entry
// to specs; there is no registration API.
package langspec

import "sort"

// Config describes the hierarchy model of one language. A Config is never
// mutated after package initialization and is safe for concurrent use.
type Config struct {
	language      string
	hierarchy     map[string]bool
	nameFields    []string
	nameNodeTypes map[string]bool
	prefixMap     map[string]string
	commentTypes  map[string]bool
}

// Language returns the language identifier this Config belongs to.
func (c *Config) Language() string { return c.language }

// IsHierarchy reports whether nodes of this type open a new scope.
func (c *Config) IsHierarchy(nodeType string) bool { return c.hierarchy[nodeType] }

// IsComment reports whether nodes of this type are attachable comments.
func (c *Config) IsComment(nodeType string) bool { return c.commentTypes[nodeType] }

// IsNameNode reports whether a direct named child of this type can supply a
// scope's name when none of the name fields yield one.
func (c *Config) IsNameNode(nodeType string) bool { return c.nameNodeTypes[nodeType] }

// NameFields returns the field names probed, in order, to find a scope name.
func (c *Config) NameFields() []string {
	out := make([]string, len(c.nameFields))
	copy(out, c.nameFields)
	return out
}

// Prefix returns the display prefix for a hierarchy node type. Types without
// an entry render with the empty prefix.
func (c *Config) Prefix(nodeType string) string { return c.prefixMap[nodeType] }

// HierarchyTypes returns the sorted hierarchy node types.
func (c *Config) HierarchyTypes() []string { return sortedKeys(c.hierarchy) }

// CommentTypes returns the sorted comment node types.
func (c *Config) CommentTypes() []string { return sortedKeys(c.commentTypes) }

// NameNodeTypes returns the sorted name node types.
func (c *Config) NameNodeTypes() []string { return sortedKeys(c.nameNodeTypes) }

// Get returns the Config for a language identifier. The second result is
// false for unsupported languages. Repeated calls with the same identifier
// return the same pointer.
func Get(language string) (*Config, bool) {
	c, ok := specs[language]
	return c, ok
}

// Languages returns every supported language identifier, sorted.
func Languages() []string {
	out := make([]string, 0, len(specs))
	for lang := range specs {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

var specs = map[string]*Config{
	"typescript": {
		language: "typescript",
		hierarchy: set(
			"class_declaration",
			"abstract_class_declaration",
			"interface_declaration",
			"function_declaration",
			"generator_function_declaration",
			"method_definition",
			"arrow_function",
			"export_statement",
			"import_statement",
		),
		nameFields:    []string{"name", "id"},
		nameNodeTypes: set("identifier", "type_identifier", "property_identifier"),
		prefixMap: map[string]string{
			"class_declaration":              "class ",
			"abstract_class_declaration":     "abstract class ",
			"interface_declaration":          "interface ",
			"function_declaration":           "fn ",
			"generator_function_declaration": "fn* ",
			"method_definition":              "",
			"arrow_function":                 "",
		},
		commentTypes: set("comment"),
	},

	"javascript": {
		language: "javascript",
		hierarchy: set(
			"class_declaration",
			"function_declaration",
			"generator_function_declaration",
			"method_definition",
			"arrow_function",
		),
		nameFields:    []string{"name", "id"},
		nameNodeTypes: set("identifier", "property_identifier"),
		prefixMap: map[string]string{
			"class_declaration":              "class ",
			"function_declaration":           "fn ",
			"generator_function_declaration": "fn* ",
			"method_definition":              "",
			"arrow_function":                 "",
		},
		commentTypes: set("comment"),
	},

	"python": {
		language:      "python",
		hierarchy:     set("class_definition", "function_definition", "decorated_definition"),
		nameFields:    []string{"name"},
		nameNodeTypes: set("identifier"),
		prefixMap: map[string]string{
			"class_definition":     "class ",
			"function_definition":  "def ",
			"decorated_definition": "",
		},
		commentTypes: set("comment"),
	},

	"go": {
		language: "go",
		hierarchy: set(
			"function_declaration",
			"method_declaration",
			"type_spec",
			"type_declaration",
			"struct_type",
			"interface_type",
		),
		nameFields:    []string{"name"},
		nameNodeTypes: set("identifier", "type_identifier", "field_identifier"),
		prefixMap: map[string]string{
			"function_declaration": "func ",
			"method_declaration":   "func ",
			"type_spec":            "type ",
			"type_declaration":     "type ",
			"struct_type":          "struct ",
			"interface_type":       "interface ",
		},
		commentTypes: set("comment"),
	},

	"rust": {
		language: "rust",
		hierarchy: set(
			"function_item",
			"struct_item",
			"enum_item",
			"trait_item",
			"impl_item",
			"mod_item",
			"type_item",
		),
		nameFields:    []string{"name"},
		nameNodeTypes: set("identifier", "type_identifier"),
		prefixMap: map[string]string{
			"function_item": "fn ",
			"struct_item":   "struct ",
			"enum_item":     "enum ",
			"trait_item":    "trait ",
			"impl_item":     "impl ",
			"mod_item":      "mod ",
			"type_item":     "type ",
		},
		commentTypes: set("line_comment", "block_comment"),
	},

	"java": {
		language: "java",
		hierarchy: set(
			"class_declaration",
			"interface_declaration",
			"enum_declaration",
			"annotation_type_declaration",
			"method_declaration",
			"constructor_declaration",
			"record_declaration",
		),
		nameFields:    []string{"name", "identifier"},
		nameNodeTypes: set("identifier"),
		prefixMap: map[string]string{
			"class_declaration":           "class ",
			"interface_declaration":       "interface ",
			"enum_declaration":            "enum ",
			"annotation_type_declaration": "@interface ",
			"method_declaration":          "",
			"constructor_declaration":     "",
			"record_declaration":          "record ",
		},
		commentTypes: set("line_comment", "block_comment"),
	},

	"c": {
		language: "c",
		hierarchy: set(
			"function_definition",
			"struct_specifier",
			"union_specifier",
			"enum_specifier",
			"type_definition",
		),
		nameFields:    []string{"declarator", "name"},
		nameNodeTypes: set("identifier", "type_identifier", "field_identifier"),
		prefixMap: map[string]string{
			"function_definition": "",
			"struct_specifier":    "struct ",
			"union_specifier":     "union ",
			"enum_specifier":      "enum ",
			"type_definition":     "typedef ",
		},
		commentTypes: set("comment"),
	},

	"cpp": {
		language: "cpp",
		hierarchy: set(
			"function_definition",
			"class_specifier",
			"struct_specifier",
			"union_specifier",
			"enum_specifier",
			"namespace_definition",
			"template_declaration",
			"type_definition",
		),
		nameFields:    []string{"declarator", "name"},
		nameNodeTypes: set("identifier", "type_identifier", "field_identifier", "namespace_identifier"),
		prefixMap: map[string]string{
			"function_definition":  "",
			"class_specifier":      "class ",
			"struct_specifier":     "struct ",
			"union_specifier":      "union ",
			"enum_specifier":       "enum ",
			"namespace_definition": "namespace ",
			"template_declaration": "template ",
			"type_definition":      "typedef ",
		},
		commentTypes: set("comment"),
	},

	"c_sharp": {
		language: "c_sharp",
		hierarchy: set(
			"class_declaration",
			"interface_declaration",
			"struct_declaration",
			"enum_declaration",
			"record_declaration",
			"method_declaration",
			"constructor_declaration",
			"property_declaration",
			"namespace_declaration",
		),
		nameFields:    []string{"name", "identifier"},
		nameNodeTypes: set("identifier"),
		prefixMap: map[string]string{
			"class_declaration":       "class ",
			"interface_declaration":   "interface ",
			"struct_declaration":      "struct ",
			"enum_declaration":        "enum ",
			"record_declaration":      "record ",
			"method_declaration":      "",
			"constructor_declaration": "",
			"property_declaration":    "",
			"namespace_declaration":   "namespace ",
		},
		commentTypes: set("comment"),
	},
}
