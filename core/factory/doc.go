// Package factory instantiates pluggable modules, such as metrics sinks, from
// configuration. A module is named by a type string and configured by a map of
// raw settings which its factory decodes into a typed struct:
//
//	reg := factory.NewRegistry[io.Writer]()
//	_ = reg.Register("file", func(conf map[string]any) (io.Writer, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return os.Create(c.Path)
//	})
//	w, err := reg.Create(factory.ModuleConfig{Type: "file", Conf: map[string]any{"path": "squad.prom"}})
package factory
