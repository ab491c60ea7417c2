package graph

import (
	"math"
	"regexp"
	"strings"
)

// tokenPattern matches runs of two or more Unicode letters, digits or underscores
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// stopWords is the standard English stop word list
var stopWords = toSet(strings.Fields(`
a about above across after afterwards again against all almost alone along
already also although always am among amongst amoungst amount an and another
any anyhow anyone anything anyway anywhere are around as at back be became
because become becomes becoming been before beforehand behind being below
beside besides between beyond bill both bottom but by call can cannot cant co
con could couldnt cry de describe detail do done down due during each eg eight
either eleven else elsewhere empty enough etc even ever every everyone
everything everywhere except few fifteen fifty fill find fire first five for
former formerly forty found four from front full further get give go had has
hasnt have he hence her here hereafter hereby herein hereupon hers herself him
himself his how however hundred i ie if in inc indeed interest into is it its
itself keep last latter latterly least less ltd made many may me meanwhile
might mill mine more moreover most mostly move much must my myself name namely
neither never nevertheless next nine no nobody none noone nor not nothing now
nowhere of off often on once one only onto or other others otherwise our ours
ourselves out over own part per perhaps please put rather re same see seem
seemed seeming seems serious several she should show side since sincere six
sixty so some somehow someone something sometime sometimes somewhere still
such system take ten than that the their them themselves then thence there
thereafter thereby therefore therein thereupon these they thick thin third
this those though three through throughout thru thus to together too top
toward towards twelve twenty two un under until up upon us very via was we
well were what whatever when whence whenever where whereafter whereas whereby
wherein whereupon wherever whether which while whither who whoever whole whom
whose why will with within without would yet you your yours yourself
yourselves`))

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// tokenize lowercases s and returns its non-stop-word terms
func tokenize(s string) []string {
	var terms []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(s), -1) {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		terms = append(terms, tok)
	}
	return terms
}

// vector is a sparse L2-normalized TF-IDF vector
type vector map[string]float64

// vectorize builds TF-IDF vectors for docs using smoothed idf
// (ln((1+n)/(1+df)) + 1) and L2 normalization. Documents without any
// terms get an empty vector.
func vectorize(docs []string) []vector {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		tf := make(map[string]int)
		for _, term := range tokenize(doc) {
			tf[term]++
		}
		for term := range tf {
			df[term]++
		}
		counts[i] = tf
	}

	n := float64(len(docs))
	vectors := make([]vector, len(docs))
	for i, tf := range counts {
		v := make(vector, len(tf))
		var norm float64
		for term, c := range tf {
			w := float64(c) * (math.Log((1+n)/(1+float64(df[term]))) + 1)
			v[term] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for term := range v {
				v[term] /= norm
			}
		}
		vectors[i] = v
	}
	return vectors
}

// cosine returns the cosine similarity of two normalized vectors
func cosine(a, b vector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var dot float64
	for term, w := range a {
		dot += w * b[term]
	}
	return math.Min(dot, 1)
}
