// Package metrics holds the Prometheus collectors of the synchronizer.
package metrics

const namespace = "blksync"

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
