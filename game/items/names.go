package items

import "fmt"

// levelNames mirrors the item pool's level naming. Index 16 is unused by
// the game.
var levelNames = map[int]string{
	1:  "Ant Hill",
	2:  "Council Chamber",
	3:  "Tunnels",
	4:  "City Entrance",
	5:  "City Square",
	6:  "Cliffside",
	7:  "Clover Forest",
	8:  "Riverbed Flight",
	9:  "Ant Hill, Part 2",
	10: "Riverbed Canyon",
	11: "Bird Nest",
	12: "The Tree",
	13: "Battle Arena",
	14: "Bug Bar",
	15: "Canyon Showdown",
	17: "Training",
}

var seedColorNames = [...]string{"Brown", "Green", "Blue", "Purple", "Yellow"}

// ItemName resolves the display name for an item id. The server does not
// deliver names with items, so the bridge carries the pool's name table;
// unknown ids get a synthesized placeholder.
func ItemName(id int64) string {
	switch {
	case id == ExtraLifeID:
		return "Extra Life"
	case id == HealthUpgradeID:
		return "Health Upgrade"
	case id >= BerryBaseID && id < BerryBaseID+100:
		if name, ok := levelNames[int(id-BerryBaseID)]; ok {
			return "Progressive Berry Upgrade - " + name
		}
	case id >= SeedBaseID && id < SeedBaseID+500:
		color := int(id/100) - 4
		if name, ok := levelNames[int(id%100)]; ok && color >= 0 && color < len(seedColorNames) {
			return fmt.Sprintf("Progressive %s Seed Upgrade - %s", seedColorNames[color], name)
		}
	}
	return fmt.Sprintf("Item #%d", id)
}
