package database

import "storefront-service/models"

// SeedCatalog is the demo catalog loaded when seeding is enabled.
func SeedCatalog() []models.Product {
	return []models.Product{
		{ID: 1, Title: "プレミアムTシャツ", Price: 3980, Description: "コットン100%のシンプルなTシャツ。", ImageURL: "/images/products/product-1.png", Category: models.CategoryClothing, Stock: 15},
		{ID: 2, Title: "ワイヤレスイヤホン Pro", Price: 12800, Description: "ノイズキャンセリング搭載のBluetoothイヤホン。", ImageURL: "/images/products/product-2.png", Category: models.CategoryElectronics, Stock: 8},
		{ID: 3, Title: "React実践入門ガイド", Price: 2980, Description: "Reactの基礎から応用まで扱う技術書。", ImageURL: "/images/products/product-3.png", Category: models.CategoryBooks, Stock: 25},
		{ID: 4, Title: "オーガニックコーヒー豆", Price: 1580, Description: "深いコクのオーガニックコーヒー豆 200g。", ImageURL: "/images/products/product-4.png", Category: models.CategoryFood, Stock: 30},
		{ID: 5, Title: "スマートウォッチ X1", Price: 24800, Description: "心拍数と睡眠を記録する防水スマートウォッチ。", ImageURL: "/images/products/product-5.png", Category: models.CategoryElectronics, Stock: 5},
		{ID: 6, Title: "デニムジャケット", Price: 8900, Description: "オールシーズン使えるデニムジャケット。", ImageURL: "/images/products/product-6.png", Category: models.CategoryClothing, Stock: 12},
		{ID: 7, Title: "TypeScript入門", Price: 3200, Description: "型システムの基礎から学べる入門書。", ImageURL: "/images/products/product-7.png", Category: models.CategoryBooks, Stock: 0},
		{ID: 8, Title: "抹茶チョコレートセット", Price: 2480, Description: "抹茶の風味豊かなチョコレート 12個入り。", ImageURL: "/images/products/product-8.png", Category: models.CategoryFood, Stock: 20},
		{ID: 9, Title: "ポータブル充電器 20000mAh", Price: 4980, Description: "USB-C対応の大容量モバイルバッテリー。", ImageURL: "/images/products/product-9.png", Category: models.CategoryElectronics, Stock: 3},
		{ID: 10, Title: "レザーウォレット", Price: 6800, Description: "本革の二つ折り財布。", ImageURL: "/images/products/product-10.png", Category: models.CategoryOther, Stock: 18},
		{ID: 11, Title: "スニーカー クラシック", Price: 7900, Description: "普段使いしやすい定番スニーカー。", ImageURL: "/images/products/product-11.png", Category: models.CategoryClothing, Stock: 10},
		{ID: 12, Title: "Next.js 実践ガイド", Price: 3500, Description: "Next.jsでのアプリ開発を解説した実践書。", ImageURL: "/images/products/product-12.png", Category: models.CategoryBooks, Stock: 15},
	}
}
