package store

// SampleProducts returns the minimal seed used when a kiosk starts with an
// empty database.
func SampleProducts() []Product {
	products := []Product{
		{Name: "블랙 쿠션 (17N1)", Brand: "헤라", Type: "쿠션", Price: "60000", Description: "세미매트 피니쉬 쿠션", Image: "product_01.jpg"},
		{Name: "더블웨어 파운데이션 (포슬린)", Brand: "에스티로더", Type: "파운데이션", Price: "82000", Description: "지속력 우수", Image: "product_02.jpg"},
		{Name: "프로 테일러 비글로우 쿠션", Brand: "에스쁘아", Type: "쿠션", Price: "35000", Description: "건성 추천 글로우", Image: "product_03.jpg"},
		{Name: "인텐시브 스킨 세럼 파운데이션", Brand: "바비브라운", Type: "파운데이션", Price: "95000", Description: "세럼 파데", Image: "product_04.jpg"},
		{Name: "섀도우 팔레트", Brand: "데이지크", Type: "아이섀도우", Price: "34000", Description: "봄웜 팔레트", Image: "product_09.jpg"},
		{Name: "쥬시 래스팅 틴트", Brand: "롬앤", Type: "립틴트", Price: "9900", Description: "촉촉 틴트", Image: "product_12.jpg"},
	}
	for i := range products {
		products[i].Category = seedCategory
	}
	return products
}

// seedCategory is the color makeup category shared by every sample row.
const seedCategory = "색조"
