package achievement

import "testing"

func TestLevelForExperience(t *testing.T) {
	cases := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{500, 4},
		{1000, 5},
		{9999, 9},
		{10000, 10},
		{20000, 10},
	}
	for _, tc := range cases {
		if got := LevelForExperience(tc.xp); got != tc.want {
			t.Fatalf("LevelForExperience(%d) = %d，期望 %d", tc.xp, got, tc.want)
		}
	}
}

func TestExperienceToNextLevel(t *testing.T) {
	if got := ExperienceToNextLevel(1); got != 100 {
		t.Fatalf("1级的下一级阈值应为100，得到 %d", got)
	}
	if got := ExperienceToNextLevel(9); got != 10000 {
		t.Fatalf("9级的下一级阈值应为10000，得到 %d", got)
	}
	// 满级没有下一级
	if got := ExperienceToNextLevel(10); got != 0 {
		t.Fatalf("满级的下一级阈值应为0，得到 %d", got)
	}
}

func TestLevelTitleFallsBack(t *testing.T) {
	if got := LevelTitle(10); got != "BrightBuddy Master" {
		t.Fatalf("10级称号不对: %s", got)
	}
	if got := LevelTitle(99); got != LevelTable[0].Title {
		t.Fatalf("越界等级应回退到最低级称号: %s", got)
	}
}

func TestCatalogIsInternallyConsistent(t *testing.T) {
	seen := make(map[string]bool, len(Catalog))
	for _, def := range Catalog {
		if seen[def.ID] {
			t.Fatalf("成就ID重复: %s", def.ID)
		}
		seen[def.ID] = true

		if def.Requirement.Value <= 0 {
			t.Fatalf("成就 %s 的目标必须为正数", def.ID)
		}
		if def.Requirement.Type == ReqSubjectMastery && def.Requirement.Subject == "" {
			t.Fatalf("科目精通类成就 %s 缺少科目", def.ID)
		}
		if _, ok := categoryExperience[def.Category]; !ok {
			t.Fatalf("成就 %s 的分类 %s 没有经验值定义", def.ID, def.Category)
		}
	}
}
