package beam

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/sambeau/beam/pkg/beam/escape"
)

// Islands render as an empty container for the client runtime:
//
//	<div data-beam-hydrater="Counter" data-beam-props="{&#34;Start&#34;:1}"></div>
const (
	HydraterAttribute = "data-beam-hydrater"
	PropsAttribute    = "data-beam-props"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func islandUI(name string, props any) UI {
	data, err := json.Marshal(props)
	if err != nil {
		panic("beam: cannot serialize props of island " + name + ": " + err.Error())
	}

	var b strings.Builder
	b.Grow(len(name) + len(data) + 64)
	b.WriteString(`<div ` + HydraterAttribute + `="`)
	escape.WriteHTML(&b, name)
	b.WriteString(`" ` + PropsAttribute + `="`)
	escape.WriteHTML(&b, string(data))
	b.WriteString(`"></div>`)
	return UI{html: b.String()}
}
