package models

// PillarInfo is the display catalogue entry for a pillar.
type PillarInfo struct {
	Name        Pillar `bson:"_id" json:"name"`
	Label       string `bson:"label" json:"label"`
	Description string `bson:"description" json:"description"`
	ColorHex    string `bson:"color_hex" json:"color_hex"`
}

// PillarCatalogue is seeded into the pillars collection by the migrate tool.
var PillarCatalogue = []PillarInfo{
	{PillarEducation, "Education", "Mental health tips, treatment approaches, and recovery education", "#4A90D9"},
	{PillarAffirming, "Affirming Messages", "Positive, supportive, and affirming content for those in recovery", "#7B68EE"},
	{PillarCommunity, "Community", "Highlighting the community, team, and local culture", "#20B2AA"},
	{PillarClientStory, "Client Stories", "UGC and testimonial content (with consent)", "#DDA0DD"},
	{PillarTreatmentInfo, "Treatment Info", "Program details, services, and how to get help", "#F0A050"},
}
