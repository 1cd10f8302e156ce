// Package args implements the argument (de)serialization codec: the textual
// form written to byplay.args at schedule time and handed back to the
// executor, which deserializes it before invoking the job. The codec is
// opaque to the reservation engine; JSON is simply the teacher's own choice
// (json.Marshal(workerWithArgs)) applied to a positional argument list
// instead of a struct.
package args

import "encoding/json"

// Serialize renders a variadic argument list as the string stored in
// byplay.args.
func Serialize(values ...interface{}) (string, error) {
	if values == nil {
		values = []interface{}{}
	}
	buf, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// Deserialize recovers the argument list written by Serialize.
// deserialize(serialize(a)) == a holds for values already in the shapes
// encoding/json decodes into (string, float64, bool, nil, []interface{},
// map[string]interface{}); any other number comes back as float64.
func Deserialize(raw string) ([]interface{}, error) {
	var values []interface{}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}
