package vfs

type seedEntry struct {
	parent  string
	name    string
	folder  bool
	content string
}

var seedProject = []seedEntry{
	{parent: RootPath, name: "src", folder: true},
	{parent: RootPath + "/src", name: "App.jsx", content: "import React from \"react\";\n\nexport default function App() {\n  return <div className=\"container\">Hello Forge!</div>;\n}\n"},
	{parent: RootPath + "/src", name: "index.jsx", content: "import React from \"react\";\nimport { createRoot } from \"react-dom/client\";\nimport App from \"./App\";\nimport \"./styles.css\";\n\ncreateRoot(document.getElementById(\"root\")).render(<App />);\n"},
	{parent: RootPath + "/src", name: "styles.css", content: ".container {\n  max-width: 1200px;\n  margin: 0 auto;\n}\n"},
	{parent: RootPath, name: "package.json", content: "{\n  \"name\": \"my-project\",\n  \"version\": \"1.0.0\",\n  \"dependencies\": {\n    \"react\": \"^18.0.0\"\n  }\n}\n"},
}

// NewSeedTree returns the starter React project shown on first launch.
func NewSeedTree() *Tree {
	t := NewTree()
	for _, e := range seedProject {
		var err error
		if e.folder {
			t, err = t.CreateFolder(e.parent, e.name)
		} else {
			t, err = t.CreateFile(e.parent, e.name)
			if err == nil {
				t, err = t.SetContent(t.LookupByPath(e.parent+"/"+e.name).ID, e.content)
			}
		}
		if err != nil {
			panic("vfs: invalid seed project: " + err.Error())
		}
	}
	// src starts collapsed like a freshly opened explorer
	if src := t.LookupByPath(RootPath + "/src"); src != nil && src.Expanded {
		t, _ = t.ToggleExpand(src.ID)
	}
	return t
}
