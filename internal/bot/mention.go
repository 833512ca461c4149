package bot

import (
	"fmt"
	"regexp"
	"strconv"
)

// atPattern matches the OneBot directed-mention segment for a group member.
var atPattern = regexp.MustCompile(`^\[CQ:at,qq=(\d+)\]`)

// At renders a directed mention of qid.
func At(qid int64) string {
	return fmt.Sprintf("[CQ:at,qq=%d]", qid)
}

// ParseAt extracts the mentioned qid from a token, or ok=false when the
// token is not a mention.
func ParseAt(token string) (int64, bool) {
	m := atPattern.FindStringSubmatch(token)
	if m == nil {
		return 0, false
	}
	qid, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return qid, true
}
