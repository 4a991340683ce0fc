package orchestrator

import "strconv"

// BuildEnvMap derives each service's environment: its own PORT (when it
// holds a local port), a <PEER>_URL/<PEER>_PORT pair per other service, and
// finally the service's own explicit env overrides merged on top.
func BuildEnvMap(g Graph, portMap map[string]int) map[string]map[string]string {
	out := make(map[string]map[string]string, len(g.Names))

	for _, name := range g.Names {
		svc := g.Services[name]
		env := map[string]string{}

		if port, ok := portMap[name]; ok {
			env["PORT"] = strconv.Itoa(port)
		}

		for _, peerName := range g.Names {
			if peerName == name {
				continue
			}
			peer := g.Services[peerName]
			key := sanitizeEnvKey(peerName)

			switch {
			case peer.Remote != nil && *peer.Remote != "":
				env[key+"_URL"] = *peer.Remote
			default:
				if port, ok := portMap[peerName]; ok {
					env[key+"_PORT"] = strconv.Itoa(port)
					env[key+"_URL"] = "http://localhost:" + strconv.Itoa(port)
				}
			}
		}

		for k, v := range svc.Env {
			env[k] = v
		}

		out[name] = env
	}

	return out
}

// SanitizeEnvKey exposes sanitizeEnvKey for callers (configbuilder) that
// need to detect sanitizer collisions before env vars are ever derived.
func SanitizeEnvKey(name string) string {
	return sanitizeEnvKey(name)
}

// sanitizeEnvKey uppercases name, maps hyphens to underscores, maps every
// other non-alphanumeric rune to underscore, and prefixes a leading digit
// with an underscore so the result is always a valid shell identifier.
func sanitizeEnvKey(name string) string {
	out := make([]rune, 0, len(name)+1)
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, r-('a'-'A'))
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) > 0 && out[0] >= '0' && out[0] <= '9' {
		out = append([]rune{'_'}, out...)
	}
	return string(out)
}
