package chunker

// NodeRule binds one tree-sitter node kind to a chunk classification. The
// full table for a language is data, not code: adding a language means
// adding a slice of NodeRule plus a grammar constructor in language.go,
// never touching structural.go's walker.
type NodeRule struct {
	NodeKind      string // sitter.Node.Kind() value this rule matches
	Chunk         Kind
	NameField     string // field name passed to node.ChildByFieldName, empty if unnamed
	TopLevelOnly  bool   // only emit a chunk when the node has no enclosing container rule
	ContainerKind string // node kind a nested rule checks its ancestors against (for breadcrumbs)
}

// languageRules is the declarative per-language rule table. Order matters:
// a node is matched against the first rule whose NodeKind matches, and the
// walker recurses into a matched node's children regardless, so nested
// containers (methods inside a class) are discovered naturally.
var languageRules = map[string][]NodeRule{
	"python": {
		{NodeKind: "class_definition", Chunk: KindClass, NameField: "name"},
		{NodeKind: "function_definition", Chunk: KindFunction, NameField: "name"},
	},
	"rust": {
		{NodeKind: "struct_item", Chunk: KindStruct, NameField: "name"},
		{NodeKind: "enum_item", Chunk: KindStruct, NameField: "name"},
		{NodeKind: "trait_item", Chunk: KindTrait, NameField: "name"},
		{NodeKind: "impl_item", Chunk: KindClass, NameField: "type"},
		{NodeKind: "function_item", Chunk: KindFunction, NameField: "name"},
		{NodeKind: "const_item", Chunk: KindConst, NameField: "name", TopLevelOnly: true},
		{NodeKind: "static_item", Chunk: KindConst, NameField: "name", TopLevelOnly: true},
	},
	"java": {
		{NodeKind: "class_declaration", Chunk: KindClass, NameField: "name"},
		{NodeKind: "interface_declaration", Chunk: KindTrait, NameField: "name"},
		{NodeKind: "enum_declaration", Chunk: KindStruct, NameField: "name"},
		{NodeKind: "method_declaration", Chunk: KindMethod, NameField: "name"},
		{NodeKind: "constructor_declaration", Chunk: KindMethod, NameField: "name"},
	},
	"c": {
		{NodeKind: "struct_specifier", Chunk: KindStruct, NameField: "name"},
		{NodeKind: "union_specifier", Chunk: KindStruct, NameField: "name"},
		{NodeKind: "enum_specifier", Chunk: KindStruct, NameField: "name"},
		{NodeKind: "function_definition", Chunk: KindFunction},
	},
	"ruby": {
		{NodeKind: "class", Chunk: KindClass, NameField: "name"},
		{NodeKind: "module", Chunk: KindModule, NameField: "name"},
		{NodeKind: "method", Chunk: KindMethod, NameField: "name"},
		{NodeKind: "singleton_method", Chunk: KindMethod, NameField: "name"},
	},
	"php": {
		{NodeKind: "class_declaration", Chunk: KindClass, NameField: "name"},
		{NodeKind: "interface_declaration", Chunk: KindTrait, NameField: "name"},
		{NodeKind: "trait_declaration", Chunk: KindTrait, NameField: "name"},
		{NodeKind: "function_definition", Chunk: KindFunction, NameField: "name"},
		{NodeKind: "method_declaration", Chunk: KindMethod, NameField: "name"},
	},
	"typescript": {
		{NodeKind: "class_declaration", Chunk: KindClass, NameField: "name"},
		{NodeKind: "interface_declaration", Chunk: KindTrait, NameField: "name"},
		{NodeKind: "type_alias_declaration", Chunk: KindStruct, NameField: "name"},
		{NodeKind: "function_declaration", Chunk: KindFunction, NameField: "name"},
		{NodeKind: "method_definition", Chunk: KindMethod, NameField: "name"},
		{NodeKind: "lexical_declaration", Chunk: KindConst, TopLevelOnly: true},
	},
}

// containerKinds lists, per language, the node kinds that should reset the
// breadcrumb's leaf segment when walked into — i.e. the "container" half
// of a container/member pair (class holding methods, module holding
// classes). Used by structural.go to build "Outer::Inner::leaf" paths.
var containerKinds = map[string]map[string]bool{
	"python":     {"class_definition": true},
	"rust":       {"impl_item": true, "trait_item": true, "mod_item": true},
	"java":       {"class_declaration": true, "interface_declaration": true, "enum_declaration": true},
	"ruby":       {"class": true, "module": true},
	"php":        {"class_declaration": true, "interface_declaration": true, "trait_declaration": true},
	"typescript": {"class_declaration": true, "interface_declaration": true},
}

// rulesFor resolves the rule table and container set for a language label.
func rulesFor(label string) ([]NodeRule, map[string]bool) {
	return languageRules[label], containerKinds[label]
}
