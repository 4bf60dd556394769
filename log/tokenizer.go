/*
 *
 * k6 - a next-generation load testing tool
 * Copyright (C) 2020 Load Impact
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package log

import "fmt"

type token struct {
	key, value string
	inside     rune // shows whether it's inside a given collection, currently [ means it's an array
}

// tokenize splits a `key=value,key=[v1,v2]` configuration line.
func tokenize(line string) ([]token, error) {
	var (
		res   []token
		key   string
		start int
	)

	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '=':
			if key != "" {
				continue
			}
			key = line[start:i]
			start = i + 1
			if start == len(line) {
				return nil, fmt.Errorf("key `%s=` with no value", key)
			}
			if line[start] != '[' {
				continue
			}
			end := start + 1
			for end < len(line) && line[end] != ']' {
				end++
			}
			if end == len(line) {
				return nil, fmt.Errorf("array value for key `%s` didn't end", key)
			}
			res = append(res, token{key: key, value: line[start+1 : end], inside: '['})
			key = ""
			i = end + 1
			if i < len(line) && line[i] != ',' {
				return nil, fmt.Errorf("there was no ',' after an array with key '%s'", res[len(res)-1].key)
			}
			start = i + 1
		case ',':
			if key == "" {
				return nil, fmt.Errorf("key `%s` with no value", line[start:i])
			}
			res = append(res, token{key: key, value: line[start:i]})
			key = ""
			start = i + 1
		}
	}

	if key != "" {
		res = append(res, token{key: key, value: line[start:]})
	} else if start < len(line) {
		return nil, fmt.Errorf("key `%s` with no value", line[start:])
	}

	return res, nil
}
