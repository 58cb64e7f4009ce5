// 包 normalize 将上游运动员数据（旧版主页 HTML 或 JSON bio）归一化为 model.AthleteRecord。
// 两种载荷共用一个入口 Normalize，调用方无需区分来源；Fetcher 负责抓取并在整体失败时返回空记录。
package normalize

import (
	"fmt"

	"xc-athletes/internal/model"
	"xc-athletes/internal/rules"
)

// Normalizer 持有旧版主页的解析规则。
type Normalizer struct {
	bio *rules.BioPage
}

// New 使用给定预设创建 Normalizer；预设缺少主页规则时使用内置默认值。
func New(p rules.Preset) *Normalizer {
	bio := p.BioPage
	if bio == nil {
		bio = rules.Default().BioPage
	}
	return &Normalizer{bio: bio}
}

// Normalize 按载荷类型分派。单个字段解析失败只降级该字段；
// 载荷中没有可识别的运动员时返回空记录与 ErrEmptyPayload。
func (n *Normalizer) Normalize(athleteID string, p Payload) (model.AthleteRecord, error) {
	var (
		rec model.AthleteRecord
		err error
	)
	switch v := p.(type) {
	case HTMLPayload:
		rec, err = n.fromHTML(athleteID, v)
	case JSONPayload:
		rec, err = fromBio(athleteID, v.Bio)
	default:
		err = fmt.Errorf("athlete %s: unsupported payload %T: %w", athleteID, p, ErrEmptyPayload)
	}
	if err != nil {
		return model.AthleteRecord{}, err
	}
	return rec, nil
}
