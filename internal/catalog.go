package internal

import "math/rand/v2"

// 題庫：每種遊戲變體一張唯讀表格，回合開始時隨機抽一題。
// 表格內容為靜態資料，程序運行期間不會變動，因此讀取不需要加鎖。

// ChemicalEquation 化學方程式題目
//
// Formula 依「反應物在前、生成物在後」排列，Reactants 記錄反應物數量，
// Target 是配平後的正確係數（與 Formula 一一對應）。
type ChemicalEquation struct {
	Formula   []string
	Target    []int
	Reactants int
}

var chemicalEquations = []ChemicalEquation{
	{Formula: []string{"N₂", "H₂", "NH₃"}, Target: []int{1, 3, 2}, Reactants: 2},
	{Formula: []string{"H₂", "O₂", "H₂O"}, Target: []int{2, 1, 2}, Reactants: 2},
	{Formula: []string{"SO₂", "O₂", "SO₃"}, Target: []int{2, 1, 2}, Reactants: 2},
	{Formula: []string{"K", "H₂O", "KOH", "H₂"}, Target: []int{2, 2, 2, 1}, Reactants: 2},
	{Formula: []string{"C₃H₈", "O₂", "CO₂", "H₂O"}, Target: []int{1, 5, 3, 4}, Reactants: 2},
	{Formula: []string{"Fe", "H₂O", "Fe₃O₄", "H₂"}, Target: []int{3, 4, 1, 4}, Reactants: 2},
	{Formula: []string{"CH₄", "O₂", "CO₂", "H₂O"}, Target: []int{1, 2, 1, 2}, Reactants: 2},
	{Formula: []string{"P₄", "O₂", "P₂O₅"}, Target: []int{1, 5, 2}, Reactants: 2},
	{Formula: []string{"Al", "HCl", "AlCl₃", "H₂"}, Target: []int{2, 6, 2, 3}, Reactants: 2},
	{Formula: []string{"C₂H₆", "O₂", "CO₂", "H₂O"}, Target: []int{2, 7, 4, 6}, Reactants: 2},
	{Formula: []string{"Fe₂O₃", "CO", "Fe", "CO₂"}, Target: []int{1, 3, 2, 3}, Reactants: 2},
}

var logicGateChallenges = []LogicGateChallenge{
	{
		Inputs: 2, Slots: 1, Available: []string{"AND", "OR", "NOT"},
		Solution: LogicGateSolution{
			Gates: []string{"AND"},
			TruthTable: []TruthTableRow{
				{Inputs: []int{0, 0}, Output: 0},
				{Inputs: []int{0, 1}, Output: 0},
				{Inputs: []int{1, 0}, Output: 0},
				{Inputs: []int{1, 1}, Output: 1},
			},
		},
	},
	{
		Inputs: 2, Slots: 1, Available: []string{"AND", "OR", "XOR"},
		Solution: LogicGateSolution{
			Gates: []string{"OR"},
			TruthTable: []TruthTableRow{
				{Inputs: []int{0, 0}, Output: 0},
				{Inputs: []int{0, 1}, Output: 1},
				{Inputs: []int{1, 0}, Output: 1},
				{Inputs: []int{1, 1}, Output: 1},
			},
		},
	},
	{
		Inputs: 1, Slots: 1, Available: []string{"AND", "OR", "NOT"},
		Solution: LogicGateSolution{
			Gates: []string{"NOT"},
			TruthTable: []TruthTableRow{
				{Inputs: []int{0}, Output: 1},
				{Inputs: []int{1}, Output: 0},
			},
		},
	},
	{
		Inputs: 2, Slots: 1, Available: []string{"OR", "XOR", "NAND"},
		Solution: LogicGateSolution{
			Gates: []string{"XOR"},
			TruthTable: []TruthTableRow{
				{Inputs: []int{0, 0}, Output: 0},
				{Inputs: []int{0, 1}, Output: 1},
				{Inputs: []int{1, 0}, Output: 1},
				{Inputs: []int{1, 1}, Output: 0},
			},
		},
	},
	{
		Inputs: 2, Slots: 1, Available: []string{"AND", "NOR", "NAND"},
		Solution: LogicGateSolution{
			Gates: []string{"NAND"},
			TruthTable: []TruthTableRow{
				{Inputs: []int{0, 0}, Output: 1},
				{Inputs: []int{0, 1}, Output: 1},
				{Inputs: []int{1, 0}, Output: 1},
				{Inputs: []int{1, 1}, Output: 0},
			},
		},
	},
}

var vectorChallenges = []VectorChallenge{
	{Target: [2]float64{100, 50}, Available: [][2]float64{{50, 0}, {50, 50}, {0, -50}}},
	{Target: [2]float64{-50, 100}, Available: [][2]float64{{-50, 0}, {0, 50}, {50, 50}}},
	{Target: [2]float64{150, 150}, Available: [][2]float64{{50, 50}, {100, 100}, {50, 0}}},
	{Target: [2]float64{0, 150}, Available: [][2]float64{{50, 100}, {-50, 50}, {0, 100}}},
	{Target: [2]float64{100, 100}, Available: [][2]float64{{100, 0}, {0, 100}, {50, 50}}},
	{Target: [2]float64{-100, -50}, Available: [][2]float64{{-50, 0}, {-50, -50}, {0, 50}}},
	{Target: [2]float64{200, 0}, Available: [][2]float64{{100, 50}, {100, -50}, {50, 0}}},
	{Target: [2]float64{0, -100}, Available: [][2]float64{{50, -50}, {-50, -50}, {0, 100}}},
	{Target: [2]float64{250, 100}, Available: [][2]float64{{100, 0}, {50, 50}, {100, 50}}},
	{Target: [2]float64{-150, 150}, Available: [][2]float64{{-100, 100}, {-50, 50}, {0, 50}}},
	{Target: [2]float64{50, -150}, Available: [][2]float64{{50, -50}, {0, -100}, {50, 0}}},
	{Target: [2]float64{-200, 0}, Available: [][2]float64{{-100, -50}, {-100, 50}, {0, 50}}},
	{Target: [2]float64{100, 75}, Available: [][2]float64{{50, 25}, {50, 50}, {25, 25}}},
	{Target: [2]float64{-75, -75}, Available: [][2]float64{{-25, -50}, {-50, -25}, {-25, -25}}},
	{Target: [2]float64{125, 0}, Available: [][2]float64{{75, 50}, {50, -50}, {25, 0}}},
	{Target: [2]float64{0, 125}, Available: [][2]float64{{50, 75}, {-50, 50}, {0, 25}}},
	{Target: [2]float64{300, 50}, Available: [][2]float64{{150, 0}, {150, 50}, {0, 50}}},
	{Target: [2]float64{-50, -125}, Available: [][2]float64{{-50, -75}, {0, -50}, {-50, 0}}},
	{Target: [2]float64{150, -50}, Available: [][2]float64{{100, 0}, {50, -50}, {100, -50}}},
	{Target: [2]float64{-150, -150}, Available: [][2]float64{{-100, -100}, {-50, -50}, {-50, 0}}},
}

// pickChemicalEquation 隨機抽一題化學方程式
func pickChemicalEquation() ChemicalEquation {
	return chemicalEquations[rand.IntN(len(chemicalEquations))]
}

// pickLogicGateChallenge 隨機抽一題邏輯閘
func pickLogicGateChallenge() LogicGateChallenge {
	return logicGateChallenges[rand.IntN(len(logicGateChallenges))]
}

// pickVectorChallenge 隨機抽一題向量
func pickVectorChallenge() VectorChallenge {
	return vectorChallenges[rand.IntN(len(vectorChallenges))]
}
