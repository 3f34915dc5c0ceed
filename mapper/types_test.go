package mapper_test

import "time"

type Person struct {
	Name string
	Age  int
}

type PersonDTO struct {
	Name string
	Age  int
}

type Skill struct {
	Title string
	Level int
}

type SkillDTO struct {
	Title string
	Level int
}

type Team struct {
	Name   string
	Skills []Skill
	Lead   *Person
}

type TeamDTO struct {
	Name     string
	Skills   []SkillDTO
	Lead     *PersonDTO
	LeadName string
}

type Country struct {
	Code string
}

type CountryDTO struct {
	Code string
}

type Org struct {
	Name    string
	Country *Country
}

type Employee struct {
	Name     string
	Nick     *string
	Level    int
	Org      *Org
	Tags     []string
	Badges   [3]int
	Joined   time.Time
	Internal string
}

type EmployeeDTO struct {
	Name       string
	Nick       string
	Level      *int
	OrgName    string
	OrgCountry *CountryDTO
	Tags       []string
	Badges     []int
	Joined     time.Time
	Internal   string
}

type Entity struct {
	ID      int
	Version int
}

type EntityDTO struct {
	ID       int
	Revision int
}

type Product struct {
	Entity

	Title string
}

type ProductDTO struct {
	EntityDTO

	Title string
}

type Node struct {
	Value int
	Next  *Node
}

type NodeDTO struct {
	Value int
	Next  *NodeDTO
}

type Wallet struct {
	Owner   string
	Balance map[string]int
}

type WalletDTO struct {
	Owner   string
	Balance []int
}

type Role string

type Staff struct {
	Name    string
	Manager *Staff
}

type StaffDTO struct {
	Name        string
	ManagerName string
}

type Leaf struct {
	Label string
}

type LeafDTO struct {
	Label string
}

type Branch struct {
	A Leaf
	B Leaf
}

type BranchDTO struct {
	A LeafDTO
	B LeafDTO
}
