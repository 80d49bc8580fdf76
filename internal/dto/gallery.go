package dto

type PhotoMetadata struct {
	SmileProb    float64 `json:"smile_prob"`
	AgeLabel     string  `json:"age_label"`
	AgeConf      float64 `json:"age_conf"`
	GenderLabel  string  `json:"gender_label"`
	GenderConf   float64 `json:"gender_conf"`
	EmotionLabel string  `json:"emotion_label"`
	EmotionConf  float64 `json:"emotion_conf"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	W            float64 `json:"w"`
	H            float64 `json:"h"`
}

type PhotoResponse struct {
	Filename  string        `json:"filename"`
	Timestamp string        `json:"timestamp"`
	Image     string        `json:"image,omitempty"`
	Metadata  PhotoMetadata `json:"metadata"`
	Remote    bool          `json:"remote"`
}

type PhotoListResponse struct {
	Photos []PhotoResponse `json:"photos"`
	Count  int             `json:"count"`
}
