// Package flagx lets independent configuration layers parse only the
// command-line flags they own.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs keeps only allowed flags (and their values) from args.
// Both "-c conf.json" and "-c=conf.json" forms are recognised; a value is
// consumed only when the next token does not itself start with "-".
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// stringFlag extracts a single string flag known under several names.
// The last occurrence wins.
func stringFlag(args []string, names ...string) string {
	var dashed []string
	for _, n := range names {
		dashed = append(dashed, "-"+n)
	}

	var value string
	fs := flag.NewFlagSet("flagx", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, n := range names {
		fs.StringVar(&value, n, "", "")
	}
	_ = fs.Parse(FilterArgs(args, dashed))
	return value
}

// JsonConfigFlag returns the JSON config path given via -c or -config.
func JsonConfigFlag(args []string) string {
	return stringFlag(args, "c", "config")
}

// EnvFileFlag returns the dotenv file path given via -env-file.
func EnvFileFlag(args []string) string {
	return stringFlag(args, "env-file")
}
